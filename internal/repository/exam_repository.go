package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exambot/internal/model"
)

// ExamRepository handles exam deck storage. Decks live in a JSONB column in
// the same shape as the exam files. Missing rows surface as pgx.ErrNoRows.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `name, num_questions, max_wrong, timelimit_seconds, hsk_level, deck, created_at, updated_at`

func scanExam(row pgx.Row) (*model.ExamRecord, error) {
	var (
		rec  model.ExamRecord
		deck []byte
	)
	d := &rec.Document
	if err := row.Scan(&d.Name, &d.NumQuestions, &d.MaxWrong, &d.Timelimit, &d.HSKLevel,
		&deck, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(deck, &d.Deck); err != nil {
		return nil, fmt.Errorf("decode deck of %q: %w", d.Name, err)
	}
	return &rec, nil
}

// GetByName retrieves one exam document.
func (r *ExamRepository) GetByName(ctx context.Context, name string) (*model.ExamDocument, error) {
	rec, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE name = $1`, name))
	if err != nil {
		return nil, err
	}
	return &rec.Document, nil
}

// ListNames returns every exam name in alphabetical order.
func (r *ExamRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM exams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListRecords returns every exam with its timestamps, ordered by name.
func (r *ExamRepository) ListRecords(ctx context.Context) ([]model.ExamRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+examColumns+` FROM exams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ExamRecord
	for rows.Next() {
		rec, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ListAll returns every exam document. Used for cache prewarming on startup.
func (r *ExamRepository) ListAll(ctx context.Context) ([]model.ExamDocument, error) {
	records, err := r.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]model.ExamDocument, len(records))
	for i := range records {
		docs[i] = records[i].Document
	}
	return docs, nil
}

// Upsert inserts an exam or replaces the one with the same name.
// It reports whether a row already existed.
func (r *ExamRepository) Upsert(ctx context.Context, doc *model.ExamDocument) (replaced bool, err error) {
	deck, err := json.Marshal(doc.Deck)
	if err != nil {
		return false, fmt.Errorf("encode deck: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO exams (name, num_questions, max_wrong, timelimit_seconds, hsk_level, deck)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		 ON CONFLICT (name) DO UPDATE SET
		     num_questions = EXCLUDED.num_questions,
		     max_wrong = EXCLUDED.max_wrong,
		     timelimit_seconds = EXCLUDED.timelimit_seconds,
		     hsk_level = EXCLUDED.hsk_level,
		     deck = EXCLUDED.deck,
		     updated_at = NOW()
		 RETURNING (xmax <> 0)`,
		doc.Name, doc.NumQuestions, doc.MaxWrong, doc.Timelimit, doc.HSKLevel, string(deck),
	).Scan(&replaced)
	return replaced, err
}

// Delete removes an exam by name.
func (r *ExamRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
