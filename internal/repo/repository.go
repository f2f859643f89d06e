package repo

import (
	"context"

	"github.com/hamed0406/pingwatch/internal/domain"
)

// OutageStore persists outage intervals outside the in-memory ledger.
// Intervals are keyed by (Target, StartedAt); saving the same key again
// records its close.
type OutageStore interface {
	Save(ctx context.Context, o domain.Outage) error
	// List returns up to limit intervals for target, newest first.
	// limit <= 0 means no limit.
	List(ctx context.Context, target string, limit int) ([]domain.Outage, error)
}
