// Package postgres stores the catalog in a shared PostgreSQL database so
// several counters can bill against one product list.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
	"autobill/backend/internal/xid"
)

// initLockKey serializes Init across processes sharing one database.
const initLockKey = 7420113

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, initLockKey); err != nil {
		return fmt.Errorf("postgres: init lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS inventory_products (
			id TEXT PRIMARY KEY NOT NULL,
			item_name TEXT NOT NULL,
			vehicle_brand TEXT NOT NULL DEFAULT '',
			list_price DOUBLE PRECISION NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}

	// Without a rowid the earliest record is the one with the smallest
	// created_at, ties broken by id.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM inventory_products p
		USING (
			SELECT id, row_number() OVER (
				PARTITION BY `+store.NameKeyPostgresSQL+`
				ORDER BY created_at ASC, id ASC
			) AS rn
			FROM inventory_products
		) ranked
		WHERE p.id = ranked.id AND ranked.rn > 1
	`); err != nil {
		return fmt.Errorf("postgres: de-duplicate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS `+store.UniqueIndexName+`
		ON inventory_products ((`+store.NameKeyPostgresSQL+`))
	`); err != nil {
		return fmt.Errorf("postgres: create unique index: %w", err)
	}

	return tx.Commit()
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, vehicle_brand, list_price, created_at, updated_at
		FROM inventory_products
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load inventory: %w", err)
	}
	return scanProducts(rows)
}

func (s *Store) Search(ctx context.Context, text string, limit int) ([]domain.Product, error) {
	term := store.SearchTerm(text)
	if term == "" {
		return []domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, vehicle_brand, list_price, created_at, updated_at
		FROM inventory_products
		WHERE lower(item_name COLLATE "C") LIKE $1 ESCAPE '\'
		ORDER BY item_name COLLATE "C" ASC
		LIMIT $2
	`, store.LikePattern(term), store.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: search inventory: %w", err)
	}
	return scanProducts(rows)
}

func (s *Store) AddIfMissing(ctx context.Context, input domain.ProductInput) (domain.AddProductResult, error) {
	itemName := store.CleanName(input.ItemName)
	if itemName == "" {
		return domain.AddProductResult{}, store.ErrItemNameRequired
	}

	timestamp := store.Timestamp(s.now())
	product := domain.Product{
		ID:           xid.New("prd"),
		ItemName:     itemName,
		VehicleBrand: strings.TrimSpace(input.VehicleBrand),
		ListPrice:    input.ListPrice,
		CreatedAt:    timestamp,
		UpdatedAt:    timestamp,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_products (id, item_name, vehicle_brand, list_price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.ItemName, product.VehicleBrand, product.ListPrice, product.CreatedAt, product.UpdatedAt)
	if err == nil {
		return domain.AddProductResult{WasCreated: true, Product: product}, nil
	}
	if !isUniqueViolation(err) {
		return domain.AddProductResult{}, fmt.Errorf("postgres: insert product: %w", err)
	}

	existing, err := s.findByName(ctx, itemName)
	if err != nil {
		return domain.AddProductResult{}, err
	}
	return domain.AddProductResult{WasCreated: false, Product: existing}, nil
}

func (s *Store) findByName(ctx context.Context, itemName string) (domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, item_name, vehicle_brand, list_price, created_at, updated_at
		FROM inventory_products
		WHERE `+store.NameKeyPostgresSQL+` = $1
		LIMIT 1
	`, store.NameKey(itemName)).Scan(&p.ID, &p.ItemName, &p.VehicleBrand, &p.ListPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("postgres: %w but no matching row", store.ErrDuplicate)
		}
		return domain.Product{}, fmt.Errorf("postgres: find product: %w", err)
	}
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.ItemName, &p.VehicleBrand, &p.ListPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
