package storage

import (
	"context"
	"errors"
	"fmt"

	"essaygrader/internal/models"

	"github.com/jackc/pgx/v5"
)

type GradingRepo struct {
	db *DB
}

func NewGradingRepo(db *DB) *GradingRepo {
	return &GradingRepo{db: db}
}

func (r *GradingRepo) Save(ctx context.Context, g models.GradingRecord) error {
	row, err := encodeGrading(g)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO gradings (grading_id, essay_hash, original, annotated, summary, grade, scores, strengths, weaknesses, suggestions,
                      warnings, degraded, provider, model, raw_reply, created_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11::jsonb, $12::jsonb, $13, $14, $15, $16)
ON CONFLICT (grading_id)
DO UPDATE SET
  annotated = EXCLUDED.annotated,
  summary = EXCLUDED.summary,
  grade = EXCLUDED.grade,
  scores = EXCLUDED.scores,
  strengths = EXCLUDED.strengths,
  weaknesses = EXCLUDED.weaknesses,
  suggestions = EXCLUDED.suggestions,
  warnings = EXCLUDED.warnings,
  degraded = EXCLUDED.degraded`,
		g.GradingID, g.EssayHash, g.Original, g.Annotated, g.Summary, g.Grade, row.scores, g.Strengths, g.Weaknesses, g.Suggestions,
		row.warnings, row.degraded, g.Provider, g.Model, g.RawReply, row.createdAt,
	)
	if err != nil {
		return fmt.Errorf("save grading: %w", err)
	}
	return nil
}

const selectGrading = `
SELECT grading_id::text, essay_hash, original, annotated, summary, grade, scores::text, strengths, weaknesses, suggestions,
       warnings::text, degraded::text, provider, model, raw_reply, created_at
FROM gradings`

func (r *GradingRepo) Get(ctx context.Context, id string) (models.GradingRecord, error) {
	g, err := scanGrading(r.db.Pool.QueryRow(ctx, selectGrading+` WHERE grading_id::text=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GradingRecord{}, fmt.Errorf("get grading %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.GradingRecord{}, fmt.Errorf("get grading: %w", err)
	}
	return g, nil
}

func (r *GradingRepo) List(ctx context.Context, limit int) ([]models.GradingRecord, error) {
	rows, err := r.db.Pool.Query(ctx, selectGrading+` ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list gradings: %w", err)
	}
	defer rows.Close()

	out := make([]models.GradingRecord, 0)
	for rows.Next() {
		g, err := scanGrading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grading: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gradings: %w", err)
	}
	return out, nil
}

func scanGrading(row pgx.Row) (models.GradingRecord, error) {
	var (
		g   models.GradingRecord
		raw gradingRow
	)
	err := row.Scan(&g.GradingID, &g.EssayHash, &g.Original, &g.Annotated, &g.Summary, &g.Grade, &raw.scores,
		&g.Strengths, &g.Weaknesses, &g.Suggestions, &raw.warnings, &raw.degraded, &g.Provider, &g.Model, &g.RawReply, &g.CreatedAt)
	if err != nil {
		return models.GradingRecord{}, err
	}
	if err := raw.decodeInto(&g); err != nil {
		return models.GradingRecord{}, err
	}
	return g, nil
}
