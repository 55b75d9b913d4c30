package app

import (
	"context"
	"time"

	"github.com/insominiac/dancelink-staging-sub000/internal/clock"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// AvailabilityRepository is the read-side storage contract. No locking is
// required here; a slightly stale answer on a listing page is acceptable.
type AvailabilityRepository interface {
	GetItem(ctx context.Context, key domain.ItemKey) (domain.Item, error)
	CountActiveHolds(ctx context.Context, key domain.ItemKey, now time.Time) (int, error)
}

// Availability is the derived occupancy picture for one item. JSON tags are
// for the cache layer, which stores the struct verbatim.
type Availability struct {
	ItemType  string `json:"item_type"`
	ItemID    string `json:"item_id"`
	Capacity  int    `json:"capacity"`
	Confirmed int    `json:"confirmed"`
	Held      int    `json:"held"`
	SpotsLeft int    `json:"spots_left"`
}

// AvailabilityService derives spots-left counts for listing and detail
// pages.
type AvailabilityService struct {
	repo  AvailabilityRepository
	clock clock.Clock
}

func NewAvailabilityService(repo AvailabilityRepository, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{
		repo:  repo,
		clock: clk,
	}
}

// SpotsLeft computes capacity minus confirmed bookings minus active
// unexpired holds, clamped at zero so transient bookkeeping drift never
// shows a negative count.
func (s *AvailabilityService) SpotsLeft(ctx context.Context, key domain.ItemKey) (Availability, error) {
	item, err := s.repo.GetItem(ctx, key)
	if err != nil {
		return Availability{}, err
	}

	held, err := s.repo.CountActiveHolds(ctx, key, s.clock.Now())
	if err != nil {
		return Availability{}, err
	}

	left := item.Capacity - item.ConfirmedCount - held
	if left < 0 {
		left = 0
	}

	return Availability{
		ItemType:  string(key.Type),
		ItemID:    key.ID,
		Capacity:  item.Capacity,
		Confirmed: item.ConfirmedCount,
		Held:      held,
		SpotsLeft: left,
	}, nil
}
