package app

import (
	"context"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// AvailabilityInvalidator drops any cached availability for an item after
// the ledger changes its occupancy. Implementations are best-effort; a
// missed invalidation only extends cache staleness within its TTL.
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, key domain.ItemKey)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, domain.ItemKey) {}

// NoopInvalidator is used when the availability cache is disabled.
func NoopInvalidator() AvailabilityInvalidator {
	return noopInvalidator{}
}
