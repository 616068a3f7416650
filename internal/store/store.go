package store

import (
	"context"
	"errors"

	"autobill/backend/internal/domain"
)

const (
	DefaultSearchLimit = 6
	TableName          = "inventory_products"
	UniqueIndexName    = "idx_inventory_item_name_unique"
)

var (
	ErrItemNameRequired = errors.New("item name is required to save inventory")
	// ErrDuplicate marks an insert rejected by the normalized-name unique
	// index. Catalogs turn it into WasCreated=false; it never reaches callers
	// of AddIfMissing.
	ErrDuplicate = errors.New("product already exists")
)

type Catalog interface {
	// Init creates the table, drops records that collide on the normalized
	// name key (the earliest record survives) and installs the unique index.
	Init(ctx context.Context) error
	LoadAll(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, text string, limit int) ([]domain.Product, error)
	AddIfMissing(ctx context.Context, input domain.ProductInput) (domain.AddProductResult, error)
	Close() error
}
