package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insominiac/dancelink-staging-sub000/internal/clock"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

var testItem = domain.ItemKey{Type: domain.ItemTypeClass, ID: "salsa-beginners"}

func TestLedgerService_Reserve(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	duration := 10 * time.Minute

	makeSvc := func(items []domain.Item, holds []domain.Hold) (*LedgerService, *fakeLedgerRepo) {
		repo := newFakeLedgerRepo(items, holds)
		svc := NewLedgerService(repo, clock.NewFixed(now), WithHoldDuration(duration))
		return svc, repo
	}

	t.Run("creates hold when capacity available", func(t *testing.T) {
		svc, repo := makeSvc(
			[]domain.Item{{Key: testItem, Name: "Salsa Beginners", Capacity: 10, ConfirmedCount: 4}},
			[]domain.Hold{
				{ID: "h1", Item: testItem, HolderID: "other", Status: domain.HoldStatusActive, ExpiresAt: now.Add(5 * time.Minute)},
			},
		)

		hold, err := svc.Reserve(context.Background(), ReserveInput{
			ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, hold.ID)
		assert.Equal(t, domain.HoldStatusActive, hold.Status)
		assert.Equal(t, now, hold.CreatedAt)
		assert.Equal(t, now.Add(duration), hold.ExpiresAt)
		assert.Equal(t, testItem, hold.Item)
		assert.Len(t, repo.holds, 2)
	})

	t.Run("rejects when item is full", func(t *testing.T) {
		svc, repo := makeSvc(
			[]domain.Item{{Key: testItem, Capacity: 2, ConfirmedCount: 1}},
			[]domain.Hold{
				{ID: "h1", Item: testItem, HolderID: "other", Status: domain.HoldStatusActive, ExpiresAt: now.Add(5 * time.Minute)},
			},
		)

		_, err := svc.Reserve(context.Background(), ReserveInput{
			ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1",
		})
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)
		assert.Len(t, repo.holds, 1)
	})

	t.Run("expired holds do not occupy seats", func(t *testing.T) {
		svc, _ := makeSvc(
			[]domain.Item{{Key: testItem, Capacity: 1}},
			[]domain.Hold{
				{ID: "h1", Item: testItem, HolderID: "other", Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Second)},
			},
		)

		hold, err := svc.Reserve(context.Background(), ReserveInput{
			ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusActive, hold.Status)
	})

	t.Run("reserve is idempotent per holder", func(t *testing.T) {
		svc, repo := makeSvc(
			[]domain.Item{{Key: testItem, Capacity: 5}},
			nil,
		)

		in := ReserveInput{ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1"}
		first, err := svc.Reserve(context.Background(), in)
		require.NoError(t, err)
		second, err := svc.Reserve(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, repo.holds, 1)
	})

	t.Run("retry sees hold committed by a concurrent reserve", func(t *testing.T) {
		// A double-click races two reserves on the last seat: the loser's
		// snapshot predates the winner's commit, so only a lookup taken
		// after the row lock can find the holder's own hold. Visibility at
		// lock time is modeled by the repo publishing the hold inside
		// GetItemForUpdate.
		committed := domain.Hold{
			ID: "h-won", Item: testItem, HolderID: "sess-1",
			Status: domain.HoldStatusActive, CreatedAt: now, ExpiresAt: now.Add(duration),
		}
		repo := &lateCommitLedgerRepo{
			fakeLedgerRepo: newFakeLedgerRepo([]domain.Item{{Key: testItem, Capacity: 1}}, nil),
			pending:        &committed,
		}
		svc := NewLedgerService(repo, clock.NewFixed(now), WithHoldDuration(duration))

		hold, err := svc.Reserve(context.Background(), ReserveInput{
			ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1",
		})
		require.NoError(t, err, "retry must get the existing hold, not a capacity rejection")
		assert.Equal(t, "h-won", hold.ID)
		assert.Len(t, repo.holds, 1)
	})

	t.Run("holder with stale active hold reserves again", func(t *testing.T) {
		svc, repo := makeSvc(
			[]domain.Item{{Key: testItem, Capacity: 1}},
			[]domain.Hold{
				{ID: "h1", Item: testItem, HolderID: "sess-1", Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Minute)},
			},
		)

		hold, err := svc.Reserve(context.Background(), ReserveInput{
			ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1",
		})
		require.NoError(t, err)
		assert.NotEqual(t, "h1", hold.ID)
		assert.Equal(t, domain.HoldStatusExpired, repo.hold("h1").Status)
	})

	t.Run("unknown item", func(t *testing.T) {
		svc, _ := makeSvc(nil, nil)
		_, err := svc.Reserve(context.Background(), ReserveInput{
			ItemType: "class", ItemID: "missing", HolderID: "sess-1",
		})
		require.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("input validation", func(t *testing.T) {
		svc, _ := makeSvc(nil, nil)

		_, err := svc.Reserve(context.Background(), ReserveInput{ItemType: "workshop", ItemID: "x", HolderID: "s"})
		require.ErrorIs(t, err, domain.ErrInvalidItemType)

		_, err = svc.Reserve(context.Background(), ReserveInput{ItemType: "class", ItemID: "", HolderID: "s"})
		require.ErrorIs(t, err, domain.ErrInvalidID)

		_, err = svc.Reserve(context.Background(), ReserveInput{ItemType: "class", ItemID: "x", HolderID: ""})
		require.ErrorIs(t, err, domain.ErrHolderRequired)
	})

	t.Run("invalidates cached availability on new hold only", func(t *testing.T) {
		repo := newFakeLedgerRepo([]domain.Item{{Key: testItem, Capacity: 5}}, nil)
		inv := &recordingInvalidator{}
		svc := NewLedgerService(repo, clock.NewFixed(now), WithHoldDuration(duration), WithInvalidator(inv))

		in := ReserveInput{ItemType: "class", ItemID: testItem.ID, HolderID: "sess-1"}
		_, err := svc.Reserve(context.Background(), in)
		require.NoError(t, err)
		_, err = svc.Reserve(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, 1, inv.count())
	})
}

// lateCommitLedgerRepo holds back one hold until GetItemForUpdate runs,
// mimicking a concurrent transaction whose insert only becomes visible once
// the item row lock is granted.
type lateCommitLedgerRepo struct {
	*fakeLedgerRepo
	pending *domain.Hold
}

func (r *lateCommitLedgerRepo) GetItemForUpdate(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	if r.pending != nil {
		hold := *r.pending
		r.fakeLedgerRepo.holds[hold.ID] = &hold
		r.pending = nil
	}
	return r.fakeLedgerRepo.GetItemForUpdate(ctx, key)
}

func TestLedgerService_ReserveConcurrent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	repo := newFakeLedgerRepo([]domain.Item{{Key: testItem, Capacity: 1}}, nil)
	svc := NewLedgerService(repo, clock.NewFixed(now))

	const attempts = 16
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), ReserveInput{
				ItemType: "class",
				ItemID:   testItem.ID,
				HolderID: fmt.Sprintf("sess-%d", n),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case err == domain.ErrCapacityExceeded:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one reservation may win the last seat")
	assert.Equal(t, attempts-1, rejected)
}

func TestLedgerService_Release(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	holdID := "434932f0-78b5-4b48-9c44-d1b1a3ffcb21"

	makeSvc := func(holds []domain.Hold) (*LedgerService, *fakeLedgerRepo) {
		repo := newFakeLedgerRepo([]domain.Item{{Key: testItem, Capacity: 5}}, holds)
		return NewLedgerService(repo, clock.NewFixed(now)), repo
	}

	activeHold := domain.Hold{
		ID: holdID, Item: testItem, HolderID: "sess-1",
		Status: domain.HoldStatusActive, ExpiresAt: now.Add(5 * time.Minute),
	}

	t.Run("releases active hold", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Hold{activeHold})
		require.NoError(t, svc.Release(context.Background(), holdID, "sess-1"))
		assert.Equal(t, domain.HoldStatusReleased, repo.hold(holdID).Status)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Hold{activeHold})
		require.NoError(t, svc.Release(context.Background(), holdID, "sess-1"))
		require.NoError(t, svc.Release(context.Background(), holdID, "sess-1"))
		assert.Equal(t, domain.HoldStatusReleased, repo.hold(holdID).Status)
	})

	t.Run("release of overdue hold records expiry", func(t *testing.T) {
		overdue := activeHold
		overdue.ExpiresAt = now.Add(-time.Second)
		svc, repo := makeSvc([]domain.Hold{overdue})

		require.NoError(t, svc.Release(context.Background(), holdID, "sess-1"))
		assert.Equal(t, domain.HoldStatusExpired, repo.hold(holdID).Status)
	})

	t.Run("ownership enforced", func(t *testing.T) {
		svc, repo := makeSvc([]domain.Hold{activeHold})
		require.ErrorIs(t, svc.Release(context.Background(), holdID, "sess-2"), domain.ErrNotHoldOwner)
		assert.Equal(t, domain.HoldStatusActive, repo.hold(holdID).Status)
	})

	t.Run("unknown hold", func(t *testing.T) {
		svc, _ := makeSvc(nil)
		require.ErrorIs(t, svc.Release(context.Background(), holdID, "sess-1"), domain.ErrHoldNotFound)
	})

	t.Run("malformed hold id reads as not found", func(t *testing.T) {
		svc, _ := makeSvc(nil)
		require.ErrorIs(t, svc.Release(context.Background(), "not-a-uuid", "sess-1"), domain.ErrHoldNotFound)
	})
}

func TestLedgerService_Confirm(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	holdID := "9c2f07a9-3a3f-4df7-9f2e-6b2f7c4f5566"

	activeHold := domain.Hold{
		ID: holdID, Item: testItem, HolderID: "sess-1",
		Status: domain.HoldStatusActive, ExpiresAt: now.Add(5 * time.Minute),
	}

	makeSvc := func(item domain.Item, holds []domain.Hold) (*LedgerService, *fakeLedgerRepo) {
		repo := newFakeLedgerRepo([]domain.Item{item}, holds)
		return NewLedgerService(repo, clock.NewFixed(now)), repo
	}

	t.Run("confirm converts hold and increments confirmed count", func(t *testing.T) {
		svc, repo := makeSvc(domain.Item{Key: testItem, Capacity: 5, ConfirmedCount: 2}, []domain.Hold{activeHold})

		require.NoError(t, svc.Confirm(context.Background(), holdID, "sess-1"))
		assert.Equal(t, domain.HoldStatusConfirmed, repo.hold(holdID).Status)
		assert.Equal(t, 3, repo.item(testItem).ConfirmedCount)
	})

	t.Run("confirm is idempotent and counts the seat once", func(t *testing.T) {
		svc, repo := makeSvc(domain.Item{Key: testItem, Capacity: 5}, []domain.Hold{activeHold})

		require.NoError(t, svc.Confirm(context.Background(), holdID, "sess-1"))
		require.NoError(t, svc.Confirm(context.Background(), holdID, "sess-1"))
		assert.Equal(t, 1, repo.item(testItem).ConfirmedCount)
	})

	t.Run("confirm after expiry fails safe", func(t *testing.T) {
		overdue := activeHold
		overdue.ExpiresAt = now.Add(-time.Second)
		svc, repo := makeSvc(domain.Item{Key: testItem, Capacity: 5}, []domain.Hold{overdue})

		require.ErrorIs(t, svc.Confirm(context.Background(), holdID, "sess-1"), domain.ErrHoldExpired)
		assert.Equal(t, 0, repo.item(testItem).ConfirmedCount, "confirmed count must not move")
		assert.Equal(t, domain.HoldStatusExpired, repo.hold(holdID).Status, "failed confirm marks the hold")
	})

	t.Run("confirm of released hold reports the cancellation", func(t *testing.T) {
		released := activeHold
		released.Status = domain.HoldStatusReleased
		svc, repo := makeSvc(domain.Item{Key: testItem, Capacity: 5}, []domain.Hold{released})

		require.ErrorIs(t, svc.Confirm(context.Background(), holdID, "sess-1"), domain.ErrHoldReleased)
		assert.Equal(t, 0, repo.item(testItem).ConfirmedCount)
	})

	t.Run("confirm of swept-expired hold reports the timeout", func(t *testing.T) {
		swept := activeHold
		swept.Status = domain.HoldStatusExpired
		svc, repo := makeSvc(domain.Item{Key: testItem, Capacity: 5}, []domain.Hold{swept})

		require.ErrorIs(t, svc.Confirm(context.Background(), holdID, "sess-1"), domain.ErrHoldExpired)
		assert.Equal(t, 0, repo.item(testItem).ConfirmedCount)
	})

	t.Run("ownership enforced", func(t *testing.T) {
		svc, _ := makeSvc(domain.Item{Key: testItem, Capacity: 5}, []domain.Hold{activeHold})
		require.ErrorIs(t, svc.Confirm(context.Background(), holdID, "sess-2"), domain.ErrNotHoldOwner)
	})

	t.Run("unknown hold", func(t *testing.T) {
		svc, _ := makeSvc(domain.Item{Key: testItem, Capacity: 5}, nil)
		require.ErrorIs(t, svc.Confirm(context.Background(), holdID, "sess-1"), domain.ErrHoldNotFound)
	})
}

// TestLedgerService_CheckoutFlow walks the whole lifecycle: two seats, three
// shoppers, one purchase, one cancellation.
func TestLedgerService_CheckoutFlow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	repo := newFakeLedgerRepo([]domain.Item{{Key: testItem, Capacity: 2}}, nil)
	ledger := NewLedgerService(repo, clk)
	availability := NewAvailabilityService(repo, clk)
	ctx := context.Background()

	spotsLeft := func() int {
		avail, err := availability.SpotsLeft(ctx, testItem)
		require.NoError(t, err)
		return avail.SpotsLeft
	}

	holdA, err := ledger.Reserve(ctx, ReserveInput{ItemType: "class", ItemID: testItem.ID, HolderID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, spotsLeft())

	holdB, err := ledger.Reserve(ctx, ReserveInput{ItemType: "class", ItemID: testItem.ID, HolderID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 0, spotsLeft())

	_, err = ledger.Reserve(ctx, ReserveInput{ItemType: "class", ItemID: testItem.ID, HolderID: "carol"})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	require.NoError(t, ledger.Confirm(ctx, holdA.ID, "alice"))
	require.NoError(t, ledger.Release(ctx, holdB.ID, "bob"))

	assert.Equal(t, domain.HoldStatusConfirmed, repo.hold(holdA.ID).Status)
	assert.Equal(t, domain.HoldStatusReleased, repo.hold(holdB.ID).Status)
	assert.Equal(t, 1, repo.item(testItem).ConfirmedCount)
	assert.Equal(t, 1, spotsLeft())

	// The confirmed seat survives the hold's nominal expiry.
	clk.Advance(time.Hour)
	assert.Equal(t, 1, spotsLeft())
}
