package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/database"
	"github.com/stemsi/exambot/internal/logger"
	"github.com/stemsi/exambot/internal/repository"
	"github.com/stemsi/exambot/internal/service"
)

// app holds the connections a subcommand needs. It is filled in by
// PersistentPreRunE and released by PersistentPostRun.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	pool  *pgxpool.Pool
	rdb   *redis.Client
	repo  *repository.ExamRepository
	exams *service.ExamService
}

var current app

var rootCmd = &cobra.Command{
	Use:          "examctl",
	Short:        "Manage exam decks",
	Long:         "examctl uploads, downloads, lists and deletes the exam decks the bot serves.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == cmd.Root() || cmd.Name() == "help" {
			return nil
		}
		return current.connect(cmd.Context(), cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		current.close()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("no-cache", false, "Do not invalidate the Redis exam cache after changes")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

func (a *app) connect(ctx context.Context, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.cfg = config.Load()
	a.log = logger.Setup(a.cfg.LogLevel, a.cfg.LogFormat).With().Str("component", "examctl").Logger()

	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := database.NewPostgresPool(ctx, a.cfg, a.log)
	if err != nil {
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	a.pool = pool
	a.repo = repository.NewExamRepository(pool)

	// The cache is optional here; a stale entry expires on its own.
	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		rdb, err := database.NewRedisClient(ctx, a.cfg, a.log)
		if err != nil {
			a.log.Warn().Err(err).Msg("Redis unavailable, cache will not be invalidated")
		} else {
			a.rdb = rdb
		}
	}
	a.exams = service.NewExamService(a.repo, a.rdb, a.cfg.ExamCacheTTL, a.log)
	return nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// invalidate drops cached copies of names. Failures are only logged.
func (a *app) invalidate(ctx context.Context, names ...string) {
	if err := a.exams.Invalidate(ctx, names...); err != nil {
		a.log.Warn().Err(err).Strs("exams", names).Msg("Cache invalidation failed")
	}
}
