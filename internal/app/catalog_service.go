package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

type CatalogRepository interface {
	CreateItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, key domain.ItemKey) (domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
}

// CatalogService registers bookable items and their capacities. The content
// side of the site owns item identity; it may pass its own ids or let the
// service mint one.
type CatalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

type CreateItemInput struct {
	ItemType string
	ItemID   string
	Name     string
	Capacity int
}

func (s *CatalogService) CreateItem(ctx context.Context, in CreateItemInput) (domain.Item, error) {
	itemType, err := domain.ParseItemType(in.ItemType)
	if err != nil {
		return domain.Item{}, err
	}
	if in.Name == "" {
		return domain.Item{}, domain.ErrItemNameRequired
	}
	if in.Capacity < 0 {
		return domain.Item{}, domain.ErrInvalidCapacity
	}

	id := in.ItemID
	if id == "" {
		id = uuid.NewString()
	}

	item := domain.Item{
		Key:      domain.ItemKey{Type: itemType, ID: id},
		Name:     in.Name,
		Capacity: in.Capacity,
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *CatalogService) GetItem(ctx context.Context, key domain.ItemKey) (domain.Item, error) {
	return s.repo.GetItem(ctx, key)
}

func (s *CatalogService) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.repo.ListItems(ctx)
}
