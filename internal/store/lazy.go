package store

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"autobill/backend/internal/domain"
)

// Opener builds an uninitialized catalog. Lazy calls Init on the result.
type Opener func(ctx context.Context) (Catalog, error)

// Lazy opens and initializes a catalog on first use. Concurrent first callers
// wait on the same in-flight initialization; a successful handle is kept for
// the life of the process, a failed one is discarded so the next call retries.
type Lazy struct {
	open  Opener
	group singleflight.Group

	mu      sync.RWMutex
	catalog Catalog
}

func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

// Get returns the ready catalog, initializing it if needed.
func (l *Lazy) Get(ctx context.Context) (Catalog, error) {
	l.mu.RLock()
	ready := l.catalog
	l.mu.RUnlock()
	if ready != nil {
		return ready, nil
	}

	v, err, _ := l.group.Do("catalog", func() (any, error) {
		l.mu.RLock()
		existing := l.catalog
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// Initialization outlives any single caller.
		initCtx := context.WithoutCancel(ctx)
		catalog, err := l.open(initCtx)
		if err != nil {
			return nil, err
		}
		if err := catalog.Init(initCtx); err != nil {
			_ = catalog.Close()
			return nil, err
		}

		l.mu.Lock()
		l.catalog = catalog
		l.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Catalog), nil
}

func (l *Lazy) Init(ctx context.Context) error {
	_, err := l.Get(ctx)
	return err
}

func (l *Lazy) LoadAll(ctx context.Context) ([]domain.Product, error) {
	catalog, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.LoadAll(ctx)
}

func (l *Lazy) Search(ctx context.Context, text string, limit int) ([]domain.Product, error) {
	if CleanName(text) == "" {
		return []domain.Product{}, nil
	}
	catalog, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(ctx, text, limit)
}

func (l *Lazy) AddIfMissing(ctx context.Context, input domain.ProductInput) (domain.AddProductResult, error) {
	catalog, err := l.Get(ctx)
	if err != nil {
		return domain.AddProductResult{}, err
	}
	return catalog.AddIfMissing(ctx, input)
}

func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.catalog == nil {
		return nil
	}
	err := l.catalog.Close()
	l.catalog = nil
	return err
}
