package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"essaygrader/internal/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("grading not found")

// Store keeps grading history and the model call audit trail.
type Store interface {
	Migrate(ctx context.Context) error
	SaveGrading(ctx context.Context, g models.GradingRecord) error
	GetGrading(ctx context.Context, id string) (models.GradingRecord, error)
	ListGradings(ctx context.Context, limit int) ([]models.GradingRecord, error)
	InsertLLMCall(ctx context.Context, rec models.LLMCall) error
	Close() error
}

// Open picks a backend from the DSN: postgres:// and postgresql:// use pgx,
// sqlite://path and file: URIs use the pure Go sqlite driver.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, errors.New("open store: empty database url")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := NewDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewPGStore(db), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"):
		return NewSQLiteStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("open store: unsupported database url scheme in %q", redact(dsn))
	}
}

// PGStore is the Postgres backed Store.
type PGStore struct {
	db       *DB
	gradings *GradingRepo
	calls    *LLMAuditRepo
}

func NewPGStore(db *DB) *PGStore {
	return &PGStore{db: db, gradings: NewGradingRepo(db), calls: NewLLMAuditRepo(db)}
}

func (s *PGStore) Migrate(ctx context.Context) error { return s.db.Migrate(ctx) }

func (s *PGStore) SaveGrading(ctx context.Context, g models.GradingRecord) error {
	return s.gradings.Save(ctx, g)
}

func (s *PGStore) GetGrading(ctx context.Context, id string) (models.GradingRecord, error) {
	return s.gradings.Get(ctx, id)
}

func (s *PGStore) ListGradings(ctx context.Context, limit int) ([]models.GradingRecord, error) {
	return s.gradings.List(ctx, limit)
}

func (s *PGStore) InsertLLMCall(ctx context.Context, rec models.LLMCall) error {
	return s.calls.Insert(ctx, rec)
}

func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// gradingRow carries the JSON encoded columns shared by both backends.
type gradingRow struct {
	scores    string
	warnings  string
	degraded  string
	createdAt time.Time
}

func encodeGrading(g models.GradingRecord) (gradingRow, error) {
	if g.GradingID == "" {
		return gradingRow{}, errors.New("save grading: missing grading id")
	}
	scores := g.Scores
	if scores == nil {
		scores = map[string]string{}
	}
	s, err := json.Marshal(scores)
	if err != nil {
		return gradingRow{}, fmt.Errorf("encode scores: %w", err)
	}
	w, err := json.Marshal(nonNil(g.Warnings))
	if err != nil {
		return gradingRow{}, fmt.Errorf("encode warnings: %w", err)
	}
	d, err := json.Marshal(nonNil(g.Degraded))
	if err != nil {
		return gradingRow{}, fmt.Errorf("encode degraded: %w", err)
	}
	created := g.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return gradingRow{scores: string(s), warnings: string(w), degraded: string(d), createdAt: created.UTC()}, nil
}

func (r gradingRow) decodeInto(g *models.GradingRecord) error {
	if err := json.Unmarshal([]byte(r.scores), &g.Scores); err != nil {
		return fmt.Errorf("decode scores: %w", err)
	}
	if err := json.Unmarshal([]byte(r.warnings), &g.Warnings); err != nil {
		return fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal([]byte(r.degraded), &g.Degraded); err != nil {
		return fmt.Errorf("decode degraded: %w", err)
	}
	return nil
}

func withCallDefaults(rec models.LLMCall) models.LLMCall {
	if rec.CallID == "" {
		rec.CallID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clampLimit(n int) int {
	if n <= 0 || n > 500 {
		return 50
	}
	return n
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}
