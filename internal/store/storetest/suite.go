// Package storetest holds the behaviour every store.Catalog implementation
// must share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
)

// Factory returns a fresh, initialized, empty catalog.
type Factory func(t *testing.T) store.Catalog

func Run(t *testing.T, newCatalog Factory) {
	t.Run("AddIfMissingCreatesOnce", func(t *testing.T) { testAddIfMissingCreatesOnce(t, newCatalog(t)) })
	t.Run("AddIfMissingRequiresName", func(t *testing.T) { testAddIfMissingRequiresName(t, newCatalog(t)) })
	t.Run("SearchEmptyText", func(t *testing.T) { testSearchEmptyText(t, newCatalog(t)) })
	t.Run("SearchSubstringOrderAndLimit", func(t *testing.T) { testSearchSubstringOrderAndLimit(t, newCatalog(t)) })
	t.Run("SearchEscapesWildcards", func(t *testing.T) { testSearchEscapesWildcards(t, newCatalog(t)) })
	t.Run("LoadAllNewestFirst", func(t *testing.T) { testLoadAllNewestFirst(t, newCatalog(t)) })
	t.Run("InitIsIdempotent", func(t *testing.T) { testInitIsIdempotent(t, newCatalog(t)) })
	t.Run("NameStoredAsEntered", func(t *testing.T) { testNameStoredAsEntered(t, newCatalog(t)) })
	t.Run("CaseFoldingIsASCIIOnly", func(t *testing.T) { testCaseFoldingIsASCIIOnly(t, newCatalog(t)) })
	t.Run("ConcurrentAddIfMissing", func(t *testing.T) { testConcurrentAddIfMissing(t, newCatalog(t)) })
}

func testAddIfMissingCreatesOnce(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()

	first, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Brake Pad", VehicleBrand: "Maruti", ListPrice: 850})
	require.NoError(t, err)
	require.True(t, first.WasCreated)
	assert.Equal(t, "Brake Pad", first.Product.ItemName)
	assert.Equal(t, "Maruti", first.Product.VehicleBrand)
	assert.Equal(t, 850.0, first.Product.ListPrice)
	assert.NotEmpty(t, first.Product.ID)
	assert.NotEmpty(t, first.Product.CreatedAt)
	assert.Equal(t, first.Product.CreatedAt, first.Product.UpdatedAt)

	second, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "brake  pad ", VehicleBrand: "Honda", ListPrice: 999})
	require.NoError(t, err)
	assert.False(t, second.WasCreated)
	assert.Equal(t, first.Product.ID, second.Product.ID)
	assert.Equal(t, 850.0, second.Product.ListPrice, "existing price must not be overwritten")
	assert.Equal(t, "Maruti", second.Product.VehicleBrand, "existing brand must not be overwritten")

	third, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "BRAKEPAD", ListPrice: 1})
	require.NoError(t, err)
	assert.False(t, third.WasCreated)

	all, err := catalog.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testAddIfMissingRequiresName(t *testing.T, catalog store.Catalog) {
	_, err := catalog.AddIfMissing(context.Background(), domain.ProductInput{ItemName: "   ", ListPrice: 10})
	require.ErrorIs(t, err, store.ErrItemNameRequired)
}

func testSearchEmptyText(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()
	_, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Horn", ListPrice: 300})
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\t"} {
		products, err := catalog.Search(ctx, text, 6)
		require.NoError(t, err)
		assert.Empty(t, products)
	}
}

func testSearchSubstringOrderAndLimit(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()
	for _, name := range []string{"Disc Brake", "Brake Pad XL", "Air Filter", "Brake Shoe", "Hand Brake Cable"} {
		_, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: name, ListPrice: 100})
		require.NoError(t, err)
	}

	products, err := catalog.Search(ctx, "  BRAKE ", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brake Pad XL", "Brake Shoe", "Disc Brake", "Hand Brake Cable"}, names(products))

	limited, err := catalog.Search(ctx, "brake", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brake Pad XL", "Brake Shoe"}, names(limited))

	defaulted, err := catalog.Search(ctx, "e", 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, 5)

	none, err := catalog.Search(ctx, "gasket", 6)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSearchEscapesWildcards(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()
	for _, name := range []string{"Bolt 10% pack", "Bolt set", "Wire_2mm"} {
		_, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: name, ListPrice: 5})
		require.NoError(t, err)
	}

	percent, err := catalog.Search(ctx, "%", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt 10% pack"}, names(percent))

	underscore, err := catalog.Search(ctx, "_", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wire_2mm"}, names(underscore))
}

func testLoadAllNewestFirst(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: fmt.Sprintf("Part %d", i), ListPrice: float64(i)})
		require.NoError(t, err)
		// Timestamps have millisecond precision.
		time.Sleep(2 * time.Millisecond)
	}

	products, err := catalog.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Part 3", "Part 2", "Part 1"}, names(products))
}

func testInitIsIdempotent(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()
	_, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Chain Sprocket", ListPrice: 1400})
	require.NoError(t, err)

	require.NoError(t, catalog.Init(ctx))
	require.NoError(t, catalog.Init(ctx))

	products, err := catalog.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chain Sprocket"}, names(products))
}

func testConcurrentAddIfMissing(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()
	const callers = 8

	var wg sync.WaitGroup
	results := make([]domain.AddProductResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Head Light"
			if i%2 == 1 {
				name = "head  LIGHT"
			}
			results[i], errs[i] = catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: name, ListPrice: float64(100 + i)})
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].WasCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)

	products, err := catalog.Search(ctx, "head", 6)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	for i := range results {
		assert.Equal(t, products[0].ID, results[i].Product.ID)
	}
}

func testNameStoredAsEntered(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()

	res, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "  Brake   Pad ", ListPrice: 450})
	require.NoError(t, err)
	assert.Equal(t, "Brake   Pad", res.Product.ItemName)

	again, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "brake pad", ListPrice: 1})
	require.NoError(t, err)
	assert.False(t, again.WasCreated)
	assert.Equal(t, "Brake   Pad", again.Product.ItemName)

	products, err := catalog.Search(ctx, "brake   p", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brake   Pad"}, names(products))
}

func testCaseFoldingIsASCIIOnly(t *testing.T, catalog store.Catalog) {
	ctx := context.Background()

	upper, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "Ölfilter", ListPrice: 300})
	require.NoError(t, err)
	require.True(t, upper.WasCreated)

	lower, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "ölfilter", ListPrice: 300})
	require.NoError(t, err)
	assert.True(t, lower.WasCreated, "non-ASCII letters are not case folded")

	same, err := catalog.AddIfMissing(ctx, domain.ProductInput{ItemName: "ÖLFILTER", ListPrice: 1})
	require.NoError(t, err)
	assert.False(t, same.WasCreated)
	assert.Equal(t, upper.Product.ID, same.Product.ID)
}

func names(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ItemName)
	}
	return out
}
