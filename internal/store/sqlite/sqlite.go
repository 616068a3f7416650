// Package sqlite stores the catalog in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
	"autobill/backend/internal/xid"
)

type productRow struct {
	ID           string  `gorm:"column:id;primaryKey"`
	ItemName     string  `gorm:"column:item_name"`
	VehicleBrand string  `gorm:"column:vehicle_brand"`
	ListPrice    float64 `gorm:"column:list_price"`
	CreatedAt    string  `gorm:"column:created_at"`
	UpdatedAt    string  `gorm:"column:updated_at"`
}

func (productRow) TableName() string {
	return store.TableName
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:           r.ID,
		ItemName:     r.ItemName,
		VehicleBrand: r.VehicleBrand,
		ListPrice:    r.ListPrice,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const productColumns = "id, item_name, vehicle_brand, list_price, created_at, updated_at"

type Store struct {
	db  *gorm.DB
	now func() time.Time

	// afterLookup runs between the existence check and the insert; tests use
	// it to stage a competing writer.
	afterLookup func()
}

// New opens the database at path. Use ":memory:" for a throwaway catalog.
// A single connection is kept open: SQLite has one writer anyway, and an
// in-memory database lives only as long as its connection.
func New(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return "file::memory:?_busy_timeout=5000"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Init(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS inventory_products (
				id TEXT PRIMARY KEY NOT NULL,
				item_name TEXT NOT NULL,
				vehicle_brand TEXT NOT NULL DEFAULT '',
				list_price REAL NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)
		`).Error; err != nil {
			return fmt.Errorf("sqlite: create table: %w", err)
		}

		dedup := tx.Exec(`
			DELETE FROM inventory_products
			WHERE rowid NOT IN (
				SELECT MIN(rowid)
				FROM inventory_products
				GROUP BY ` + store.NameKeySQL + `
			)
		`)
		if dedup.Error != nil {
			return fmt.Errorf("sqlite: de-duplicate: %w", dedup.Error)
		}

		if err := tx.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS ` + store.UniqueIndexName + `
			ON inventory_products (` + store.NameKeySQL + `)
		`).Error; err != nil {
			return fmt.Errorf("sqlite: create unique index: %w", err)
		}
		return nil
	})
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	err := s.db.WithContext(ctx).
		Select(productColumns).
		Order("created_at DESC, rowid DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite: load inventory: %w", err)
	}
	return toDomain(rows), nil
}

func (s *Store) Search(ctx context.Context, text string, limit int) ([]domain.Product, error) {
	term := store.SearchTerm(text)
	if term == "" {
		return []domain.Product{}, nil
	}

	var rows []productRow
	err := s.db.WithContext(ctx).
		Select(productColumns).
		Where(`lower(item_name) LIKE ? ESCAPE '\'`, store.LikePattern(term)).
		Order("item_name ASC").
		Limit(store.NormalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite: search inventory: %w", err)
	}
	return toDomain(rows), nil
}

func (s *Store) AddIfMissing(ctx context.Context, input domain.ProductInput) (domain.AddProductResult, error) {
	itemName := store.CleanName(input.ItemName)
	if itemName == "" {
		return domain.AddProductResult{}, store.ErrItemNameRequired
	}

	existing, err := s.findByName(ctx, itemName)
	if err != nil {
		return domain.AddProductResult{}, err
	}
	if existing != nil {
		return domain.AddProductResult{WasCreated: false, Product: *existing}, nil
	}
	if s.afterLookup != nil {
		s.afterLookup()
	}

	timestamp := store.Timestamp(s.now())
	row := productRow{
		ID:           xid.New("prd"),
		ItemName:     itemName,
		VehicleBrand: strings.TrimSpace(input.VehicleBrand),
		ListPrice:    input.ListPrice,
		CreatedAt:    timestamp,
		UpdatedAt:    timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if !isUniqueViolation(err) {
			return domain.AddProductResult{}, fmt.Errorf("sqlite: insert product: %w", err)
		}
		// Another writer got there first; its record wins.
		winner, findErr := s.findByName(ctx, itemName)
		if findErr != nil {
			return domain.AddProductResult{}, findErr
		}
		if winner == nil {
			return domain.AddProductResult{}, fmt.Errorf("sqlite: %w but no matching row", store.ErrDuplicate)
		}
		return domain.AddProductResult{WasCreated: false, Product: *winner}, nil
	}

	return domain.AddProductResult{WasCreated: true, Product: row.toDomain()}, nil
}

func (s *Store) findByName(ctx context.Context, itemName string) (*domain.Product, error) {
	var rows []productRow
	err := s.db.WithContext(ctx).
		Select(productColumns).
		Where(store.NameKeySQL+" = lower(replace(trim(?), ' ', ''))", itemName).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite: find product: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	product := rows[0].toDomain()
	return &product, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toDomain(rows []productRow) []domain.Product {
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toDomain())
	}
	return products
}
