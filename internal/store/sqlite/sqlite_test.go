package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
	"autobill/backend/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCatalogBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Catalog {
		s := newTestStore(t)
		require.NoError(t, s.Init(context.Background()))
		return s
	})
}

func TestInitRemovesLegacyDuplicatesKeepingLowestRowID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.db.Exec(`
		CREATE TABLE inventory_products (
			id TEXT PRIMARY KEY NOT NULL,
			item_name TEXT NOT NULL,
			vehicle_brand TEXT NOT NULL DEFAULT '',
			list_price REAL NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`).Error)
	legacy := []productRow{
		{ID: "first", ItemName: "Brake Pad", ListPrice: 100, CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "second", ItemName: "brake pad", ListPrice: 200, CreatedAt: "2024-01-02T00:00:00.000Z", UpdatedAt: "2024-01-02T00:00:00.000Z"},
		{ID: "third", ItemName: "Horn", ListPrice: 300, CreatedAt: "2024-01-03T00:00:00.000Z", UpdatedAt: "2024-01-03T00:00:00.000Z"},
		{ID: "fourth", ItemName: " BRAKE PAD", ListPrice: 400, CreatedAt: "2024-01-04T00:00:00.000Z", UpdatedAt: "2024-01-04T00:00:00.000Z"},
	}
	for _, row := range legacy {
		require.NoError(t, s.db.Create(&row).Error)
	}

	require.NoError(t, s.Init(ctx))

	products, err := s.LoadAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"third", "first"}, ids)

	// The unique index is now in place.
	err = s.db.Create(&productRow{ID: "fifth", ItemName: "BrakePad", ListPrice: 1, CreatedAt: "x", UpdatedAt: "x"}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestAddIfMissingRecoversFromUniqueViolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	// A competing writer lands between our lookup and our insert.
	s.afterLookup = func() {
		require.NoError(t, s.db.Create(&productRow{
			ID: "winner", ItemName: "Fog Lamp", VehicleBrand: "Mahindra", ListPrice: 700,
			CreatedAt: "2024-02-01T00:00:00.000Z", UpdatedAt: "2024-02-01T00:00:00.000Z",
		}).Error)
	}

	res, err := s.AddIfMissing(ctx, domain.ProductInput{ItemName: "fog  lamp", ListPrice: 1})
	require.NoError(t, err)
	assert.False(t, res.WasCreated)
	assert.Equal(t, "winner", res.Product.ID)
	assert.Equal(t, 700.0, res.Product.ListPrice)
}

func TestFileDatabaseSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")
	ctx := context.Background()

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	_, err = s.AddIfMissing(ctx, domain.ProductInput{ItemName: "Tail Light", ListPrice: 450})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Init(ctx))

	res, err := reopened.AddIfMissing(ctx, domain.ProductInput{ItemName: "tail light", ListPrice: 1})
	require.NoError(t, err)
	assert.False(t, res.WasCreated)
	assert.Equal(t, 450.0, res.Product.ListPrice)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New(context.Background(), " ")
	require.Error(t, err)
}
