package api

import (
	"context"

	"mediacache/internal/mediacache"
)

// ItemReader abstracts the cache persistence needed for API queries.
type ItemReader interface {
	List(ctx context.Context, filter mediacache.Filter) ([]*mediacache.CacheItem, error)
	Stats(ctx context.Context) (mediacache.Stats, error)
	Get(ctx context.Context, id string) (*mediacache.CacheItem, error)
}

// ItemService exposes read-only cache operations returning API DTOs.
type ItemService struct {
	store ItemReader
}

// NewItemService constructs an ItemService around the provided reader.
func NewItemService(store ItemReader) *ItemService {
	if store == nil {
		return nil
	}
	return &ItemService{store: store}
}

// List returns cache items matching filter.
func (s *ItemService) List(ctx context.Context, filter mediacache.Filter) ([]CacheItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromCacheItems(items), nil
}

// Stats returns item counts.
func (s *ItemService) Stats(ctx context.Context) (StatsResponse, error) {
	if s == nil || s.store == nil {
		return StatsResponse{}, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return StatsResponse{}, err
	}
	return FromStats(stats), nil
}

// Describe fetches a single cache item. A missing item yields nil, nil.
func (s *ItemService) Describe(ctx context.Context, id string) (*CacheItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.Get(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromCacheItem(item)
	return &dto, nil
}
