package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/exam"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/session"
)

// ExamStore is where exam documents live: the Postgres repository or a
// directory of files. A missing exam is reported as pgx.ErrNoRows or
// fs.ErrNotExist.
type ExamStore interface {
	GetByName(ctx context.Context, name string) (*model.ExamDocument, error)
	ListNames(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]model.ExamDocument, error)
}

// ExamService resolves exams for the session manager, reading through a
// Redis cache in front of the store. A nil Redis client disables caching.
type ExamService struct {
	store ExamStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(store ExamStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamService {
	return &ExamService{
		store: store,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, fs.ErrNotExist)
}

// LoadExam implements session.ExamLoader.
func (s *ExamService) LoadExam(ctx context.Context, name string) (*exam.Exam, error) {
	doc, err := s.Document(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.ToExam()
}

// Summary returns the public view of one exam.
func (s *ExamService) Summary(ctx context.Context, name string) (model.ExamSummary, error) {
	e, err := s.LoadExam(ctx, name)
	if err != nil {
		return model.ExamSummary{}, err
	}
	return model.SummaryOf(e), nil
}

// Document returns the raw exam document, from cache when possible.
func (s *ExamService) Document(ctx context.Context, name string) (*model.ExamDocument, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", session.ErrExamNotFound)
	}

	if doc, ok := s.cachedDocument(ctx, name); ok {
		return doc, nil
	}

	doc, err := s.store.GetByName(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", session.ErrExamNotFound, name)
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if err := s.WarmExamCache(ctx, doc); err != nil {
		s.log.Warn().Err(err).Str("exam", name).Msg("Failed to cache exam")
	}
	return doc, nil
}

func (s *ExamService) cachedDocument(ctx context.Context, name string) (*model.ExamDocument, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("exam", name).Msg("Exam cache read failed, falling back to store")
		}
		return nil, false
	}

	var doc model.ExamDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn().Err(err).Str("exam", name).Msg("Corrupt exam cache entry, ignoring")
		return nil, false
	}
	return &doc, true
}

// ExamNames implements session.ExamLoader. The list is cached as well.
func (s *ExamService) ExamNames(ctx context.Context) ([]string, error) {
	key := config.CacheKey.ExamNamesKey()
	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var names []string
			if json.Unmarshal(data, &names) == nil {
				return names, nil
			}
		}
	}

	names, err := s.store.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exam names: %w", err)
	}
	if names == nil {
		names = []string{}
	}

	if s.rdb != nil {
		if data, err := json.Marshal(names); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to cache exam names")
			}
		}
	}
	return names, nil
}

// WarmExamCache stores one exam document in Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, doc *model.ExamDocument) error {
	if s.rdb == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamPayloadKey(doc.Name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam", doc.Name).
		Int("deck", len(doc.Deck)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads every valid exam into Redis on application startup.
// Invalid documents are logged and skipped.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}

	docs, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}
	if len(docs) == 0 {
		s.log.Warn().Msg("No exams to prewarm")
		return nil
	}

	valid, names := s.cacheableExams(docs)
	pipe := s.rdb.Pipeline()
	for _, doc := range valid {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal exam %q: %w", doc.Name, err)
		}
		pipe.Set(ctx, config.CacheKey.ExamPayloadKey(doc.Name), data, s.ttl)
	}
	namesJSON, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal exam names: %w", err)
	}
	pipe.Set(ctx, config.CacheKey.ExamNamesKey(), namesJSON, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Info().
		Int("warmed", len(names)).
		Int("total", len(docs)).
		Msg("Prewarming complete")
	return nil
}

// cacheableExams filters out documents that fail validation and returns the
// remaining documents with the name list that is cached alongside them.
func (s *ExamService) cacheableExams(docs []model.ExamDocument) ([]*model.ExamDocument, []string) {
	valid := make([]*model.ExamDocument, 0, len(docs))
	names := make([]string, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		if _, err := doc.ToExam(); err != nil {
			s.log.Warn().Err(err).Str("exam", doc.Name).Msg("Invalid exam, skipping")
			continue
		}
		valid = append(valid, doc)
		names = append(names, doc.Name)
	}
	return valid, names
}

// Invalidate drops cached entries after exams change in the store.
func (s *ExamService) Invalidate(ctx context.Context, names ...string) error {
	if s.rdb == nil {
		return nil
	}
	keys := []string{config.CacheKey.ExamNamesKey()}
	for _, n := range names {
		keys = append(keys, config.CacheKey.ExamPayloadKey(normalizeName(n)))
	}
	return s.rdb.Del(ctx, keys...).Err()
}
