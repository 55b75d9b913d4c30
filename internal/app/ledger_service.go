package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/insominiac/dancelink-staging-sub000/internal/clock"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
	"github.com/insominiac/dancelink-staging-sub000/internal/metrics"
)

// LedgerRepository is the storage contract for the reservation ledger.
// WithTx must provide the atomicity reserve depends on: everything executed
// inside fn observes and mutates a consistent snapshot, and GetItemForUpdate
// serializes concurrent transactions touching the same item.
type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetItemForUpdate(ctx context.Context, key domain.ItemKey) (domain.Item, error)
	FindActiveHoldByHolder(ctx context.Context, key domain.ItemKey, holderID string, now time.Time) (*domain.Hold, error)
	CountActiveHolds(ctx context.Context, key domain.ItemKey, now time.Time) (int, error)
	ExpireHolderStale(ctx context.Context, key domain.ItemKey, holderID string, now time.Time) error
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error
	IncrementConfirmed(ctx context.Context, key domain.ItemKey) error
	ListHoldsByItem(ctx context.Context, key domain.ItemKey) ([]domain.Hold, error)
}

// LedgerService is the sole writer of holds and the enforcer of the
// capacity invariant: confirmed seats plus active unexpired holds never
// exceed an item's capacity.
type LedgerService struct {
	repo         LedgerRepository
	clock        clock.Clock
	holdDuration time.Duration
	metrics      *metrics.Metrics
	invalidator  AvailabilityInvalidator
}

const defaultHoldDuration = 10 * time.Minute

func NewLedgerService(repo LedgerRepository, clk clock.Clock, opts ...LedgerOption) *LedgerService {
	svc := &LedgerService{
		repo:         repo,
		clock:        clk,
		holdDuration: defaultHoldDuration,
		invalidator:  NoopInvalidator(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type LedgerOption func(*LedgerService)

// WithHoldDuration overrides how long a new hold reserves its seat.
func WithHoldDuration(d time.Duration) LedgerOption {
	return func(s *LedgerService) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

// WithMetrics records reservation outcomes and hold transitions.
func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) {
		s.metrics = m
	}
}

// WithInvalidator drops cached availability for items whose occupancy the
// ledger changes.
func WithInvalidator(inv AvailabilityInvalidator) LedgerOption {
	return func(s *LedgerService) {
		if inv != nil {
			s.invalidator = inv
		}
	}
}

type ReserveInput struct {
	ItemType string
	ItemID   string
	HolderID string
}

// Reserve creates a hold for one seat, or returns the holder's existing
// active hold on the same item. The availability check and the insert run in
// one transaction under the item's row lock, so two reservations for the
// last seat can never both succeed.
func (s *LedgerService) Reserve(ctx context.Context, in ReserveInput) (domain.Hold, error) {
	itemType, err := domain.ParseItemType(in.ItemType)
	if err != nil {
		return domain.Hold{}, err
	}
	if in.ItemID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}
	if in.HolderID == "" {
		return domain.Hold{}, domain.ErrHolderRequired
	}

	key := domain.ItemKey{Type: itemType, ID: in.ItemID}
	now := s.clock.Now()
	var result domain.Hold
	created := false

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.repo.GetItemForUpdate(txCtx, key)
		if err != nil {
			return err
		}

		// The idempotency lookup must run under the item row lock. Before
		// the lock, a hold committed by a concurrent reserve from the same
		// holder can be invisible to this transaction's snapshot, and the
		// retry would bounce off the capacity check instead of getting the
		// existing hold back.
		if existing, err := s.repo.FindActiveHoldByHolder(txCtx, key, in.HolderID, now); err != nil {
			return err
		} else if existing != nil {
			result = *existing
			return nil
		}

		// A previous hold from this holder may still sit at status active
		// past its expiry if the sweep has not caught up. It no longer
		// counts toward occupancy, but it would collide with the one-active-
		// hold-per-holder index, so retire it before inserting.
		if err := s.repo.ExpireHolderStale(txCtx, key, in.HolderID, now); err != nil {
			return err
		}

		held, err := s.repo.CountActiveHolds(txCtx, key, now)
		if err != nil {
			return err
		}
		if item.ConfirmedCount+held >= item.Capacity {
			return domain.ErrCapacityExceeded
		}

		hold := domain.Hold{
			ID:        uuid.NewString(),
			Item:      key,
			HolderID:  in.HolderID,
			Status:    domain.HoldStatusActive,
			CreatedAt: now,
			ExpiresAt: now.Add(s.holdDuration),
		}

		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			// A concurrent request from the same holder won the insert
			// race; return its hold to keep retries idempotent.
			if err == domain.ErrDuplicateHold {
				existing, err := s.repo.FindActiveHoldByHolder(txCtx, key, in.HolderID, now)
				if err != nil {
					return err
				}
				if existing != nil {
					result = *existing
					return nil
				}
			}
			return err
		}

		result = hold
		created = true
		return nil
	})
	if err != nil {
		if err == domain.ErrCapacityExceeded {
			s.metrics.ObserveReserve(metrics.OutcomeCapacityExceeded)
		} else {
			s.metrics.ObserveReserve(metrics.OutcomeError)
		}
		return domain.Hold{}, err
	}

	if created {
		s.metrics.ObserveReserve(metrics.OutcomeCreated)
		s.invalidator.Invalidate(ctx, key)
	} else {
		s.metrics.ObserveReserve(metrics.OutcomeIdempotent)
	}
	return result, nil
}

// Release gives the held seat back. Releasing a hold that already reached a
// terminal state succeeds without changing anything, so duplicate cancel
// clicks are harmless.
func (s *LedgerService) Release(ctx context.Context, holdID, holderID string) error {
	if holderID == "" {
		return domain.ErrHolderRequired
	}
	if _, err := uuid.Parse(holdID); err != nil {
		return domain.ErrHoldNotFound
	}

	now := s.clock.Now()
	var key domain.ItemKey
	changed := false

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.HolderID != holderID {
			return domain.ErrNotHoldOwner
		}
		if hold.Status.Terminal() {
			return nil
		}

		// An unswept expired hold is already dead; record that instead of
		// pretending the release raced the expiry.
		status := domain.HoldStatusReleased
		if !hold.ExpiresAt.After(now) {
			status = domain.HoldStatusExpired
		}
		if err := s.repo.UpdateHoldStatus(txCtx, holdID, status); err != nil {
			return err
		}
		key = hold.Item
		changed = true
		s.metrics.ObserveTransition(string(status))
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		s.invalidator.Invalidate(ctx, key)
	}
	return nil
}

// Confirm converts a hold into a confirmed booking: the item's confirmed
// count and the hold's status move in the same transaction, with the count
// incremented first. A hold that expired while payment was in flight fails
// with ErrHoldExpired, a cancelled one with ErrHoldReleased; neither moves
// the confirmed count.
func (s *LedgerService) Confirm(ctx context.Context, holdID, holderID string) error {
	if holderID == "" {
		return domain.ErrHolderRequired
	}
	if _, err := uuid.Parse(holdID); err != nil {
		return domain.ErrHoldNotFound
	}

	now := s.clock.Now()
	var key domain.ItemKey
	changed := false
	expired := false
	released := false

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.HolderID != holderID {
			return domain.ErrNotHoldOwner
		}
		switch hold.Status {
		case domain.HoldStatusConfirmed:
			// Retried confirm after a success; nothing left to do.
			return nil
		case domain.HoldStatusReleased:
			// The holder cancelled before paying; the payment flow needs to
			// tell that apart from a timeout.
			released = true
			return nil
		case domain.HoldStatusExpired:
			expired = true
			return nil
		}
		if !hold.ExpiresAt.After(now) {
			// The hold died while payment was in flight. Mark it now so the
			// failed confirmation is visible without waiting for the sweep;
			// the transaction must commit for the mark to stick, so the
			// expiry error is surfaced after it does.
			if err := s.repo.UpdateHoldStatus(txCtx, holdID, domain.HoldStatusExpired); err != nil {
				return err
			}
			key = hold.Item
			changed = true
			expired = true
			s.metrics.ObserveTransition(string(domain.HoldStatusExpired))
			return nil
		}

		if err := s.repo.IncrementConfirmed(txCtx, hold.Item); err != nil {
			return err
		}
		if err := s.repo.UpdateHoldStatus(txCtx, holdID, domain.HoldStatusConfirmed); err != nil {
			return err
		}
		key = hold.Item
		changed = true
		s.metrics.ObserveTransition(string(domain.HoldStatusConfirmed))
		return nil
	})
	if changed {
		s.invalidator.Invalidate(ctx, key)
	}
	if err == nil && released {
		return domain.ErrHoldReleased
	}
	if err == nil && expired {
		return domain.ErrHoldExpired
	}
	return err
}

// CountActiveUnexpired reports how many seats holds currently occupy on an
// item.
func (s *LedgerService) CountActiveUnexpired(ctx context.Context, key domain.ItemKey) (int, error) {
	return s.repo.CountActiveHolds(ctx, key, s.clock.Now())
}

// ListHoldsByItem exposes the item's hold history for dashboards. Statuses
// come back as stored; a row can read active while already past its expiry
// if the sweep has not caught up.
func (s *LedgerService) ListHoldsByItem(ctx context.Context, key domain.ItemKey) ([]domain.Hold, error) {
	return s.repo.ListHoldsByItem(ctx, key)
}
