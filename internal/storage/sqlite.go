package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"essaygrader/internal/models"

	_ "modernc.org/sqlite"
)

const createGradingsTableSQL = `
CREATE TABLE IF NOT EXISTS gradings (
	grading_id TEXT PRIMARY KEY,
	essay_hash TEXT NOT NULL,
	original TEXT NOT NULL,
	annotated TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	grade TEXT NOT NULL,
	scores TEXT NOT NULL DEFAULT '{}',
	strengths TEXT NOT NULL,
	weaknesses TEXT NOT NULL,
	suggestions TEXT NOT NULL,
	warnings TEXT NOT NULL DEFAULT '[]',
	degraded TEXT NOT NULL DEFAULT '[]',
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	raw_reply TEXT NOT NULL DEFAULT '',
	created_at_utc TEXT NOT NULL
)`

const createLLMCallsTableSQL = `
CREATE TABLE IF NOT EXISTS llm_calls (
	call_id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	grading_id TEXT NOT NULL DEFAULT '',
	provider_name TEXT NOT NULL,
	model TEXT NOT NULL,
	base_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT '',
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at_utc TEXT NOT NULL
)`

var sqliteSchema = []string{
	createGradingsTableSQL,
	`CREATE INDEX IF NOT EXISTS idx_gradings_created_at ON gradings(created_at_utc)`,
	createLLMCallsTableSQL,
	`CREATE INDEX IF NOT EXISTS idx_llm_calls_grading ON llm_calls(grading_id)`,
}

const upsertGradingSQL = `
INSERT INTO gradings (
	grading_id, essay_hash, original, annotated, summary, grade, scores, strengths, weaknesses, suggestions,
	warnings, degraded, provider, model, raw_reply, created_at_utc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(grading_id) DO UPDATE SET
	annotated = excluded.annotated,
	summary = excluded.summary,
	grade = excluded.grade,
	scores = excluded.scores,
	strengths = excluded.strengths,
	weaknesses = excluded.weaknesses,
	suggestions = excluded.suggestions,
	warnings = excluded.warnings,
	degraded = excluded.degraded`

const selectGradingSQL = `
SELECT grading_id, essay_hash, original, annotated, summary, grade, scores, strengths, weaknesses, suggestions,
	warnings, degraded, provider, model, raw_reply, created_at_utc
FROM gradings`

const insertLLMCallSQL = `
INSERT INTO llm_calls (call_id, operation, grading_id, provider_name, model, base_url, status, error_type, latency_ms, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(call_id) DO NOTHING`

// SQLiteStore keeps history in a local database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveGrading(ctx context.Context, g models.GradingRecord) error {
	row, err := encodeGrading(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertGradingSQL,
		g.GradingID, g.EssayHash, g.Original, g.Annotated, g.Summary, g.Grade, row.scores, g.Strengths, g.Weaknesses, g.Suggestions,
		row.warnings, row.degraded, g.Provider, g.Model, g.RawReply, row.createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save grading: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGrading(ctx context.Context, id string) (models.GradingRecord, error) {
	g, err := scanSQLiteGrading(s.db.QueryRowContext(ctx, selectGradingSQL+` WHERE grading_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.GradingRecord{}, fmt.Errorf("get grading %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.GradingRecord{}, fmt.Errorf("get grading: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) ListGradings(ctx context.Context, limit int) ([]models.GradingRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectGradingSQL+` ORDER BY created_at_utc DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list gradings: %w", err)
	}
	defer rows.Close()

	out := make([]models.GradingRecord, 0)
	for rows.Next() {
		g, err := scanSQLiteGrading(rows)
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

func (s *SQLiteStore) InsertLLMCall(ctx context.Context, rec models.LLMCall) error {
	rec = withCallDefaults(rec)
	_, err := s.db.ExecContext(ctx, insertLLMCallSQL,
		rec.CallID, rec.Operation, rec.GradingID, rec.ProviderName, rec.Model, rec.BaseURL, rec.Status, rec.ErrorType,
		rec.LatencyMs, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// CountLLMCalls returns the number of audit rows for a grading.
func (s *SQLiteStore) CountLLMCalls(ctx context.Context, gradingID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM llm_calls WHERE grading_id = ?`, gradingID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count llm calls: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteGrading(row rowScanner) (models.GradingRecord, error) {
	var (
		g       models.GradingRecord
		raw     gradingRow
		created string
	)
	err := row.Scan(&g.GradingID, &g.EssayHash, &g.Original, &g.Annotated, &g.Summary, &g.Grade, &raw.scores,
		&g.Strengths, &g.Weaknesses, &g.Suggestions, &raw.warnings, &raw.degraded, &g.Provider, &g.Model, &g.RawReply, &created)
	if err != nil {
		return models.GradingRecord{}, err
	}
	if g.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return models.GradingRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if err := raw.decodeInto(&g); err != nil {
		return models.GradingRecord{}, err
	}
	return g, nil
}
