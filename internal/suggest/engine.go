package suggest

import (
	"context"
	"log/slog"
	"time"

	"autobill/backend/internal/cache"
	"autobill/backend/internal/domain"
	"autobill/backend/internal/logger"
	"autobill/backend/internal/metrics"
	"autobill/backend/internal/store"
)

const defaultCacheTTL = 30 * time.Second

// Engine answers autocomplete lookups from the suggestion cache and falls
// back to the catalog on a miss. Cache failures degrade to a catalog read.
type Engine struct {
	catalog  store.Catalog
	cache    cache.SuggestionCache
	cacheTTL time.Duration
	log      *slog.Logger
}

func NewEngine(catalog store.Catalog, cacheStore cache.SuggestionCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSuggestionCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Engine{
		catalog:  catalog,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		log:      logger.For("suggest"),
	}
}

func (e *Engine) Suggest(ctx context.Context, text string, limit int) ([]domain.Product, error) {
	term := store.SearchTerm(text)
	if term == "" {
		return []domain.Product{}, nil
	}
	limit = store.NormalizeLimit(limit)

	lookup, err := e.cache.Get(ctx, term, limit)
	cacheOK := err == nil
	if !cacheOK {
		e.log.Warn("suggestion cache read failed", "query", term, "error", err)
	}
	if cacheOK && lookup.Hit {
		metrics.SuggestionCacheHits.Inc()
		return lookup.Products, nil
	}
	metrics.SuggestionCacheMisses.Inc()

	products, err := e.catalog.Search(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	// Written under the generation seen before the search: a product added
	// meanwhile bumps the generation and orphans this entry.
	if cacheOK {
		if err := e.cache.Set(ctx, lookup.Generation, term, limit, products, e.cacheTTL); err != nil {
			e.log.Warn("suggestion cache write failed", "query", term, "error", err)
		}
	}
	return products, nil
}

// Invalidate drops every cached suggestion. A failure is logged; entries then
// age out through their TTL.
func (e *Engine) Invalidate(ctx context.Context) {
	if err := e.cache.Invalidate(ctx); err != nil {
		e.log.Warn("suggestion cache invalidate failed", "error", err)
	}
}
