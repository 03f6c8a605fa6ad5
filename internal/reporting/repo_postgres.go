package reporting

import (
	"context"
	"errors"
	"time"

	"voiceagent/internal/calls"
)

// PostgresRepo backs reporting with the call store's read operations.
type PostgresRepo struct {
	calls *calls.Store
}

func NewPostgresRepo(callStore *calls.Store) (*PostgresRepo, error) {
	if callStore == nil {
		return nil, errors.New("reporting: call store is required")
	}
	return &PostgresRepo{calls: callStore}, nil
}

func (r *PostgresRepo) ListCalls(ctx context.Context, from, to time.Time) ([]calls.Call, error) {
	return r.calls.ListByCreatedAt(ctx, from, to)
}

func (r *PostgresRepo) RecentCalls(ctx context.Context, limit int) ([]calls.Call, error) {
	return r.calls.Recent(ctx, limit)
}
