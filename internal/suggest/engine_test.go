package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"autobill/backend/internal/cache"
	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
	"autobill/backend/internal/store/memory"
)

type mapCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[string][]domain.Product
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]domain.Product{}}
}

func mapKey(gen int64, query string, limit int) string {
	return fmt.Sprintf("%d|%d|%s", gen, limit, query)
}

func (c *mapCache) Get(_ context.Context, query string, limit int) (cache.Lookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return cache.Lookup{}, errors.New("cache down")
	}
	v, ok := c.entries[mapKey(c.gen, query, limit)]
	return cache.Lookup{Products: v, Hit: ok, Generation: c.gen}, nil
}

func (c *mapCache) Set(_ context.Context, gen int64, query string, limit int, products []domain.Product, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[mapKey(gen, query, limit)] = products
	return nil
}

func (c *mapCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return nil
}

type countingCatalog struct {
	store.Catalog
	searches int
	// afterSearch runs once the search has read its rows.
	afterSearch func()
}

func (c *countingCatalog) Search(ctx context.Context, text string, limit int) ([]domain.Product, error) {
	c.searches++
	products, err := c.Catalog.Search(ctx, text, limit)
	if c.afterSearch != nil {
		c.afterSearch()
	}
	return products, err
}

func newCatalog(t *testing.T) *countingCatalog {
	t.Helper()
	m := memory.New()
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return &countingCatalog{Catalog: m}
}

func TestSuggestServesRepeatQueriesFromCache(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	_, _ = catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Brake Pad", ListPrice: 450})
	engine := NewEngine(catalog, newMapCache(), time.Minute)

	for i := 0; i < 3; i++ {
		got, err := engine.Suggest(ctx, "  BRAKE ", 0)
		if err != nil {
			t.Fatalf("suggest: %v", err)
		}
		if len(got) != 1 || got[0].ItemName != "Brake Pad" {
			t.Fatalf("unexpected suggestions %+v", got)
		}
	}
	if catalog.searches != 1 {
		t.Fatalf("expected one catalog search, got %d", catalog.searches)
	}
}

func TestSuggestSeesProductsAddedAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	engine := NewEngine(catalog, newMapCache(), time.Minute)

	if got, _ := engine.Suggest(ctx, "clutch", 6); len(got) != 0 {
		t.Fatalf("expected empty catalog, got %+v", got)
	}
	_, _ = catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Clutch Plate", ListPrice: 900})
	engine.Invalidate(ctx)

	got, err := engine.Suggest(ctx, "clutch", 6)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected fresh product after invalidate, got %+v err=%v", got, err)
	}
}

func TestSuggestFallsBackWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	_, _ = catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Spark Plug", ListPrice: 120})
	c := newMapCache()
	c.failGet = true
	engine := NewEngine(catalog, c, 0)

	got, err := engine.Suggest(ctx, "spark", 6)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected catalog fallback, got %+v err=%v", got, err)
	}
}

func TestSuggestBlankTextSkipsCatalog(t *testing.T) {
	catalog := newCatalog(t)
	engine := NewEngine(catalog, nil, 0)

	got, err := engine.Suggest(context.Background(), "   ", 6)
	if err != nil || len(got) != 0 || catalog.searches != 0 {
		t.Fatalf("blank query must not search: %+v err=%v searches=%d", got, err, catalog.searches)
	}
}

func TestSuggestDoesNotCacheResultsOverlappingAnInsert(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	engine := NewEngine(catalog, newMapCache(), time.Minute)

	catalog.afterSearch = func() {
		catalog.afterSearch = nil
		_, _ = catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Clutch Plate", ListPrice: 900})
		engine.Invalidate(ctx)
	}

	got, err := engine.Suggest(ctx, "clutch", 6)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected the in-flight search to miss the new product, got %+v err=%v", got, err)
	}

	got, err = engine.Suggest(ctx, "clutch", 6)
	if err != nil || len(got) != 1 || got[0].ItemName != "Clutch Plate" {
		t.Fatalf("expected the product added during the search, got %+v err=%v", got, err)
	}
	if catalog.searches != 2 {
		t.Fatalf("expected the second lookup to reach the catalog, got %d searches", catalog.searches)
	}
}
