package storage

import (
	"context"
	"fmt"

	"essaygrader/internal/models"
)

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec models.LLMCall) error {
	rec = withCallDefaults(rec)
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, grading_id, provider_name, model, base_url, status, error_type, latency_ms, created_at)
VALUES ($1::uuid, $2, NULLIF($3,''), $4, $5, $6, $7, NULLIF($8,''), $9, $10)
ON CONFLICT (call_id) DO NOTHING`,
		rec.CallID, rec.Operation, rec.GradingID, rec.ProviderName, rec.Model, rec.BaseURL, rec.Status, rec.ErrorType, rec.LatencyMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
