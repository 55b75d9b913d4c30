package app

import (
	"context"
	"sync"
	"time"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// fakeLedgerRepo is an in-memory LedgerRepository. WithTx serializes
// callers with a mutex, standing in for the per-item row lock the real
// store provides; individual methods are only safe inside WithTx or
// single-threaded tests.
type fakeLedgerRepo struct {
	mu    sync.Mutex
	items map[domain.ItemKey]*domain.Item
	holds map[string]*domain.Hold

	createErr error
	expireErr error
}

func newFakeLedgerRepo(items []domain.Item, holds []domain.Hold) *fakeLedgerRepo {
	r := &fakeLedgerRepo{
		items: make(map[domain.ItemKey]*domain.Item),
		holds: make(map[string]*domain.Hold),
	}
	for i := range items {
		item := items[i]
		r.items[item.Key] = &item
	}
	for i := range holds {
		hold := holds[i]
		r.holds[hold.ID] = &hold
	}
	return r
}

func (r *fakeLedgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

func (r *fakeLedgerRepo) GetItemForUpdate(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	return r.GetItem(ctx, key)
}

func (r *fakeLedgerRepo) GetItem(_ context.Context, key domain.ItemKey) (domain.Item, error) {
	item, ok := r.items[key]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return *item, nil
}

func (r *fakeLedgerRepo) FindActiveHoldByHolder(_ context.Context, key domain.ItemKey, holderID string, now time.Time) (*domain.Hold, error) {
	for _, h := range r.holds {
		if h.Item == key && h.HolderID == holderID && h.ActiveAt(now) {
			hold := *h
			return &hold, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) CountActiveHolds(_ context.Context, key domain.ItemKey, now time.Time) (int, error) {
	total := 0
	for _, h := range r.holds {
		if h.Item == key && h.ActiveAt(now) {
			total++
		}
	}
	return total, nil
}

func (r *fakeLedgerRepo) ExpireHolderStale(_ context.Context, key domain.ItemKey, holderID string, now time.Time) error {
	if r.expireErr != nil {
		return r.expireErr
	}
	for _, h := range r.holds {
		if h.Item == key && h.HolderID == holderID && h.Status == domain.HoldStatusActive && !h.ExpiresAt.After(now) {
			h.Status = domain.HoldStatusExpired
		}
	}
	return nil
}

func (r *fakeLedgerRepo) CreateHold(_ context.Context, hold domain.Hold) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, h := range r.holds {
		if h.Item == hold.Item && h.HolderID == hold.HolderID && h.Status == domain.HoldStatusActive {
			return domain.ErrDuplicateHold
		}
	}
	stored := hold
	r.holds[hold.ID] = &stored
	return nil
}

func (r *fakeLedgerRepo) GetHoldForUpdate(_ context.Context, holdID string) (domain.Hold, error) {
	h, ok := r.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return *h, nil
}

func (r *fakeLedgerRepo) UpdateHoldStatus(_ context.Context, holdID string, status domain.HoldStatus) error {
	h, ok := r.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	h.Status = status
	return nil
}

func (r *fakeLedgerRepo) IncrementConfirmed(_ context.Context, key domain.ItemKey) error {
	item, ok := r.items[key]
	if !ok {
		return domain.ErrItemNotFound
	}
	if item.ConfirmedCount >= item.Capacity {
		return domain.ErrCapacityExceeded
	}
	item.ConfirmedCount++
	return nil
}

func (r *fakeLedgerRepo) ListHoldsByItem(_ context.Context, key domain.ItemKey) ([]domain.Hold, error) {
	var holds []domain.Hold
	for _, h := range r.holds {
		if h.Item == key {
			holds = append(holds, *h)
		}
	}
	return holds, nil
}

func (r *fakeLedgerRepo) ExpireDue(_ context.Context, now time.Time, limit int) ([]domain.ItemKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []domain.ItemKey
	for _, h := range r.holds {
		if len(keys) >= limit {
			break
		}
		if h.Status == domain.HoldStatusActive && !h.ExpiresAt.After(now) {
			h.Status = domain.HoldStatusExpired
			keys = append(keys, h.Item)
		}
	}
	return keys, nil
}

func (r *fakeLedgerRepo) hold(id string) domain.Hold {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.holds[id]
}

func (r *fakeLedgerRepo) item(key domain.ItemKey) domain.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[key]
}

// recordingInvalidator captures which items had cached availability
// dropped.
type recordingInvalidator struct {
	mu   sync.Mutex
	keys []domain.ItemKey
}

func (r *recordingInvalidator) Invalidate(_ context.Context, key domain.ItemKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
