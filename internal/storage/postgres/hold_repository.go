package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// HoldRepository persists holds and performs the item reads the ledger needs
// inside its transactions.
type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetItemForUpdate locks the item row for the rest of the transaction. This
// lock is what serializes concurrent reservations on the same item.
func (r *HoldRepository) GetItemForUpdate(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	const query = `
SELECT item_type, item_id, name, capacity, confirmed_count
FROM items
WHERE item_type = $1 AND item_id = $2
FOR UPDATE`

	return r.scanItem(r.queryRow(ctx, query, key.Type, key.ID))
}

func (r *HoldRepository) GetItem(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	const query = `
SELECT item_type, item_id, name, capacity, confirmed_count
FROM items
WHERE item_type = $1 AND item_id = $2`

	return r.scanItem(r.queryRow(ctx, query, key.Type, key.ID))
}

func (r *HoldRepository) scanItem(row pgx.Row) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.Key.Type, &item.Key.ID, &item.Name, &item.Capacity, &item.ConfirmedCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *HoldRepository) FindActiveHoldByHolder(ctx context.Context, key domain.ItemKey, holderID string, now time.Time) (*domain.Hold, error) {
	const query = `
SELECT id, item_type, item_id, holder_id, status, created_at, expires_at
FROM holds
WHERE item_type = $1 AND item_id = $2 AND holder_id = $3
  AND status = 'active' AND expires_at > $4`

	var h domain.Hold
	err := r.queryRow(ctx, query, key.Type, key.ID, holderID, now).
		Scan(&h.ID, &h.Item.Type, &h.Item.ID, &h.HolderID, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active hold by holder: %w", err)
	}
	return &h, nil
}

func (r *HoldRepository) CountActiveHolds(ctx context.Context, key domain.ItemKey, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM holds
WHERE item_type = $1 AND item_id = $2 AND status = 'active' AND expires_at > $3`

	var total int
	if err := r.queryRow(ctx, query, key.Type, key.ID, now).Scan(&total); err != nil {
		return 0, fmt.Errorf("count active holds: %w", err)
	}
	return total, nil
}

// ExpireHolderStale retires the holder's overdue active hold on an item so
// a fresh reservation does not trip over the one-active-per-holder index.
func (r *HoldRepository) ExpireHolderStale(ctx context.Context, key domain.ItemKey, holderID string, now time.Time) error {
	const stmt = `
UPDATE holds
SET status = 'expired'
WHERE item_type = $1 AND item_id = $2 AND holder_id = $3
  AND status = 'active' AND expires_at <= $4`

	if _, err := r.exec(ctx, stmt, key.Type, key.ID, holderID, now); err != nil {
		return fmt.Errorf("expire stale hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, item_type, item_id, holder_id, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.Item.Type,
		hold.Item.ID,
		hold.HolderID,
		hold.Status,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateHold
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT id, item_type, item_id, holder_id, status, created_at, expires_at
FROM holds
WHERE id = $1
FOR UPDATE`

	var h domain.Hold
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.Item.Type, &h.Item.ID, &h.HolderID, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows || isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, holdID, status)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

// IncrementConfirmed bumps the item's confirmed count. The guard mirrors the
// capacity check constraint so a bookkeeping bug surfaces as an error here
// instead of an overbooked item.
func (r *HoldRepository) IncrementConfirmed(ctx context.Context, key domain.ItemKey) error {
	const stmt = `
UPDATE items
SET confirmed_count = confirmed_count + 1
WHERE item_type = $1 AND item_id = $2 AND confirmed_count < capacity`

	tag, err := r.exec(ctx, stmt, key.Type, key.ID)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrCapacityExceeded
		}
		return fmt.Errorf("increment confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCapacityExceeded
	}
	return nil
}

// ExpireDue flips due active holds to expired and returns the items they
// held seats on. SKIP LOCKED keeps the sweep from queueing behind foreground
// confirms.
func (r *HoldRepository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]domain.ItemKey, error) {
	const stmt = `
UPDATE holds
SET status = 'expired'
WHERE id IN (
	SELECT id FROM holds
	WHERE status = 'active' AND expires_at <= $1
	ORDER BY expires_at
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
RETURNING item_type, item_id`

	rows, err := r.query(ctx, stmt, now, limit)
	if err != nil {
		return nil, fmt.Errorf("expire due holds: %w", err)
	}
	defer rows.Close()

	var keys []domain.ItemKey
	for rows.Next() {
		var key domain.ItemKey
		if err := rows.Scan(&key.Type, &key.ID); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expire due holds: %w", err)
	}
	return keys, nil
}

// ListHoldsByItem returns the item's full hold history, newest first.
func (r *HoldRepository) ListHoldsByItem(ctx context.Context, key domain.ItemKey) ([]domain.Hold, error) {
	const query = `
SELECT id, item_type, item_id, holder_id, status, created_at, expires_at
FROM holds
WHERE item_type = $1 AND item_id = $2
ORDER BY created_at DESC`

	rows, err := r.query(ctx, query, key.Type, key.ID)
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.Item.Type, &h.Item.ID, &h.HolderID, &h.Status, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	return holds, nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
