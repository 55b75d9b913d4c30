package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

// ItemRepository manages the bookable-item catalog.
type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) CreateItem(ctx context.Context, item domain.Item) error {
	const stmt = `
INSERT INTO items (item_type, item_id, name, capacity, confirmed_count)
VALUES ($1, $2, $3, $4, 0)`

	_, err := r.pool.Exec(ctx, stmt, item.Key.Type, item.Key.ID, item.Name, item.Capacity)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrItemAlreadyExists
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidCapacity
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *ItemRepository) GetItem(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	const query = `
SELECT item_type, item_id, name, capacity, confirmed_count
FROM items
WHERE item_type = $1 AND item_id = $2`

	var item domain.Item
	err := r.pool.QueryRow(ctx, query, key.Type, key.ID).
		Scan(&item.Key.Type, &item.Key.ID, &item.Name, &item.Capacity, &item.ConfirmedCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *ItemRepository) ListItems(ctx context.Context) ([]domain.Item, error) {
	const query = `
SELECT item_type, item_id, name, capacity, confirmed_count
FROM items
ORDER BY item_type, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.Key.Type, &item.Key.ID, &item.Name, &item.Capacity, &item.ConfirmedCount); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}
