// Package store persists finished execution results.
package store

import (
	"context"

	"github.com/promptbench/engine/internal/domain"
)

// Store is the persistence interface for execution results. The orchestrator
// performs exactly one SaveResult per execution; reads serve the HTTP surface.
type Store interface {
	SaveResult(ctx context.Context, executionID string, result *domain.ConversationResult) error
	GetResult(ctx context.Context, executionID string) (*domain.ConversationResult, error)
	ListExecutions(ctx context.Context, limit int) ([]ExecutionSummary, error)
	Close() error
}

// ExecutionSummary is the listing row for a stored execution.
type ExecutionSummary struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	TotalTurns  int    `json:"total_turns"`
	CreatedAt   string `json:"created_at"`
}
