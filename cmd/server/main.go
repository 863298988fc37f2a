package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/database"
	"github.com/stemsi/exambot/internal/handler"
	"github.com/stemsi/exambot/internal/logger"
	"github.com/stemsi/exambot/internal/middleware"
	"github.com/stemsi/exambot/internal/render"
	"github.com/stemsi/exambot/internal/repository"
	"github.com/stemsi/exambot/internal/router"
	"github.com/stemsi/exambot/internal/service"
	"github.com/stemsi/exambot/internal/session"
	"github.com/stemsi/exambot/internal/validator"
	"github.com/stemsi/exambot/internal/websocket"
	"github.com/stemsi/exambot/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("exam_source", cfg.ExamSource).
		Int("millis_per_tick", cfg.MillisPerTick).
		Strs("exam_channels", cfg.ExamChannels).
		Msg("Starting exam bot")

	if len(cfg.ExamChannels) == 0 {
		log.Warn().Msg("EXAM_CHANNELS is empty, no channel may host exams")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Exam Store ────────────────────────────────────────────────────
	var store service.ExamStore
	switch cfg.ExamSource {
	case config.ExamSourceFile:
		store = service.NewFileExamSource(cfg.DataDir)
	default:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = repository.NewExamRepository(pool)
	}

	examService := service.NewExamService(store, rdb, cfg.ExamCacheTTL, log)

	// Load every exam into Redis before accepting traffic.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Rendering ─────────────────────────────────────────────────────
	hub := websocket.NewHub(log)
	dispatcher := render.NewDispatcher(render.Fanout{
		render.NewLogRenderer(log),
		render.NewFeedRenderer(render.NewRedisPublisher(rdb)),
		render.NewFeedRenderer(hub),
	}, cfg.RenderBuffer, log)

	// ─── Sessions ──────────────────────────────────────────────────────
	allowed := make([]session.ChannelID, 0, len(cfg.ExamChannels))
	for _, ch := range cfg.ExamChannels {
		allowed = append(allowed, session.ChannelID(ch))
	}
	manager := session.NewManager(examService, dispatcher, session.ManagerConfig{
		AllowedChannels: allowed,
		MillisPerTick:   cfg.MillisPerTick,
	}, log)
	chatService := service.NewChatService(manager, cfg.CommandPrefix, cfg.DefaultExam, log)

	// ─── Rate Limiters ─────────────────────────────────────────────────
	limiterDone := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.MessageRatePerMinute, time.Minute)
	limiter.StartCleanup(limiterDone)
	apiLimiter := middleware.NewRateLimiter(cfg.APIRatePerMinute, time.Minute)
	apiLimiter.StartCleanup(limiterDone)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:    handler.NewExamHandler(examService, log),
		Message: handler.NewMessageHandler(chatService, limiter, log),
		Session: handler.NewSessionHandler(chatService, manager, log),
		Feed:    handler.NewFeedHandler(rdb, manager, log),
		WS:      handler.NewWSHandler(chatService, hub, limiter, log, cfg.AllowedOrigins),
		Health:  handler.NewHealthHandler(manager, dispatcher),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	// The dispatcher outlives the tick worker so the last sweep's events
	// still get rendered.
	renderCtx, renderCancel := context.WithCancel(context.Background())
	workerCtx, workerCancel := context.WithCancel(context.Background())

	var renderWG, workerWG sync.WaitGroup
	renderWG.Add(1)
	go func() {
		defer renderWG.Done()
		dispatcher.Run(renderCtx)
	}()

	tickWorker := worker.NewTickWorker(manager, cfg.TickInterval(), log)
	inboundWorker := worker.NewInboundWorker(rdb, chatService, render.NewRedisPublisher(rdb), log)

	workerWG.Add(2)
	go func() {
		defer workerWG.Done()
		tickWorker.Start(workerCtx)
	}()
	go func() {
		defer workerWG.Done()
		inboundWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, apiLimiter, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop ticking and consuming, then let the dispatcher drain.
	workerCancel()
	workerWG.Wait()
	renderCancel()
	renderWG.Wait()
	close(limiterDone)

	log.Info().
		Int("active_sessions", len(manager.Snapshot())).
		Int64("render_dropped", dispatcher.Dropped()).
		Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
