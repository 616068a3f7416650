package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
	"autobill/backend/internal/store/memory"
)

func TestLazyInitializesOnceUnderConcurrency(t *testing.T) {
	var opens atomic.Int32
	release := make(chan struct{})
	lazy := store.NewLazy(func(ctx context.Context) (store.Catalog, error) {
		opens.Add(1)
		<-release
		return memory.New(), nil
	})

	const callers = 10
	var wg sync.WaitGroup
	handles := make([]store.Catalog, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := lazy.Get(context.Background())
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			handles[i] = c
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := opens.Load(); got != 1 {
		t.Fatalf("expected exactly one open, got %d", got)
	}
	for i := 1; i < callers; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("caller %d received a different handle", i)
		}
	}
}

func TestLazyRetriesAfterFailedOpen(t *testing.T) {
	var attempts atomic.Int32
	lazy := store.NewLazy(func(ctx context.Context) (store.Catalog, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("disk not ready")
		}
		return memory.New(), nil
	})

	if _, err := lazy.Get(context.Background()); err == nil {
		t.Fatalf("expected first open to fail")
	}
	if _, err := lazy.Get(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if _, err := lazy.Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected 2 open attempts, got %d", got)
	}
}

func TestLazySearchSkipsStorageForBlankText(t *testing.T) {
	var opens atomic.Int32
	lazy := store.NewLazy(func(ctx context.Context) (store.Catalog, error) {
		opens.Add(1)
		return memory.New(), nil
	})

	products, err := lazy.Search(context.Background(), "   ", 6)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected no products, got %d", len(products))
	}
	if opens.Load() != 0 {
		t.Fatalf("blank search must not open storage")
	}
}

func TestLazyDelegates(t *testing.T) {
	lazy := store.NewLazy(func(ctx context.Context) (store.Catalog, error) {
		return memory.New(), nil
	})
	ctx := context.Background()

	res, err := lazy.AddIfMissing(ctx, domain.ProductInput{ItemName: "Fuel Pump", ListPrice: 1800})
	if err != nil || !res.WasCreated {
		t.Fatalf("add: created=%t err=%v", res.WasCreated, err)
	}
	found, err := lazy.Search(ctx, "pump", 6)
	if err != nil || len(found) != 1 {
		t.Fatalf("search: %d results, err=%v", len(found), err)
	}
	if err := lazy.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
