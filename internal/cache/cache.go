package cache

import (
	"context"
	"time"

	"autobill/backend/internal/domain"
)

// Lookup is the outcome of a cache read. Generation is the cache generation
// the read observed; a result computed after a miss must be written back
// under that generation so an Invalidate in between orphans it.
type Lookup struct {
	Products   []domain.Product
	Hit        bool
	Generation int64
}

// SuggestionCache holds search results keyed by normalized query and limit.
// Invalidate makes every earlier entry unreachable; it is called whenever a
// product is added so suggestions never miss a fresh record.
type SuggestionCache interface {
	Get(ctx context.Context, query string, limit int) (Lookup, error)
	Set(ctx context.Context, generation int64, query string, limit int, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopSuggestionCache struct{}

func (NoopSuggestionCache) Get(_ context.Context, _ string, _ int) (Lookup, error) {
	return Lookup{}, nil
}

func (NoopSuggestionCache) Set(_ context.Context, _ int64, _ string, _ int, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopSuggestionCache) Invalidate(_ context.Context) error {
	return nil
}
