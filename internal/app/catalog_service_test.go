package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

type fakeCatalogRepo struct {
	items map[domain.ItemKey]domain.Item
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{items: make(map[domain.ItemKey]domain.Item)}
}

func (r *fakeCatalogRepo) CreateItem(_ context.Context, item domain.Item) error {
	if _, ok := r.items[item.Key]; ok {
		return domain.ErrItemAlreadyExists
	}
	r.items[item.Key] = item
	return nil
}

func (r *fakeCatalogRepo) GetItem(_ context.Context, key domain.ItemKey) (domain.Item, error) {
	item, ok := r.items[key]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (r *fakeCatalogRepo) ListItems(_ context.Context) ([]domain.Item, error) {
	var items []domain.Item
	for _, item := range r.items {
		items = append(items, item)
	}
	return items, nil
}

func TestCatalogService_CreateItem(t *testing.T) {
	t.Parallel()

	t.Run("creates item with caller-supplied id", func(t *testing.T) {
		svc := NewCatalogService(newFakeCatalogRepo())

		item, err := svc.CreateItem(context.Background(), CreateItemInput{
			ItemType: "event", ItemID: "summer-gala-2026", Name: "Summer Gala", Capacity: 120,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ItemTypeEvent, item.Key.Type)
		assert.Equal(t, "summer-gala-2026", item.Key.ID)
		assert.Equal(t, 120, item.Capacity)
		assert.Equal(t, 0, item.ConfirmedCount)
	})

	t.Run("mints an id when none given", func(t *testing.T) {
		svc := NewCatalogService(newFakeCatalogRepo())

		item, err := svc.CreateItem(context.Background(), CreateItemInput{
			ItemType: "class", Name: "Bachata Drop-in", Capacity: 16,
		})
		require.NoError(t, err)
		_, err = uuid.Parse(item.Key.ID)
		assert.NoError(t, err)
	})

	t.Run("zero capacity is allowed", func(t *testing.T) {
		svc := NewCatalogService(newFakeCatalogRepo())
		_, err := svc.CreateItem(context.Background(), CreateItemInput{
			ItemType: "class", Name: "Waitlist Only", Capacity: 0,
		})
		require.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewCatalogService(newFakeCatalogRepo())

		_, err := svc.CreateItem(context.Background(), CreateItemInput{ItemType: "room", Name: "x", Capacity: 1})
		require.ErrorIs(t, err, domain.ErrInvalidItemType)

		_, err = svc.CreateItem(context.Background(), CreateItemInput{ItemType: "class", Capacity: 1})
		require.ErrorIs(t, err, domain.ErrItemNameRequired)

		_, err = svc.CreateItem(context.Background(), CreateItemInput{ItemType: "class", Name: "x", Capacity: -1})
		require.ErrorIs(t, err, domain.ErrInvalidCapacity)
	})

	t.Run("duplicate key", func(t *testing.T) {
		svc := NewCatalogService(newFakeCatalogRepo())
		in := CreateItemInput{ItemType: "class", ItemID: "salsa-1", Name: "Salsa", Capacity: 10}

		_, err := svc.CreateItem(context.Background(), in)
		require.NoError(t, err)
		_, err = svc.CreateItem(context.Background(), in)
		require.ErrorIs(t, err, domain.ErrItemAlreadyExists)
	})
}
