package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
	"autobill/backend/internal/xid"
)

type record struct {
	rowID   int64
	product domain.Product
}

// Store keeps the catalog in process memory. Rows carry an increasing row id
// so de-duplication and tie-breaking follow insertion order.
type Store struct {
	mu        sync.RWMutex
	rows      []record
	byKey     map[string]int64
	nextRowID int64
	indexed   bool
	now       func() time.Time
}

func New() *Store {
	return &Store{
		byKey: make(map[string]int64),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// newWithProducts preloads rows as they might exist in an older catalog,
// duplicates included. Init removes the duplicates.
func newWithProducts(products ...domain.Product) *Store {
	s := New()
	for _, p := range products {
		s.nextRowID++
		s.rows = append(s.rows, record{rowID: s.nextRowID, product: p})
	}
	return s
}

func NewSeeded() *Store {
	s := New()
	seed := []domain.ProductInput{
		{ItemName: "Brake Pad", VehicleBrand: "Maruti", ListPrice: 850},
		{ItemName: "Clutch Plate", VehicleBrand: "Bajaj", ListPrice: 1250},
		{ItemName: "Oil Filter", VehicleBrand: "Honda", ListPrice: 150},
		{ItemName: "Spark Plug", VehicleBrand: "Hero", ListPrice: 90},
		{ItemName: "Disc Brake", VehicleBrand: "", ListPrice: 2100},
	}
	_ = s.Init(context.Background())
	for _, input := range seed {
		_, _ = s.AddIfMissing(context.Background(), input)
	}
	return s
}

func (s *Store) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slices.SortFunc(s.rows, func(a, b record) int {
		return cmp.Compare(a.rowID, b.rowID)
	})

	kept := make([]record, 0, len(s.rows))
	byKey := make(map[string]int64, len(s.rows))
	for _, row := range s.rows {
		key := store.NameKey(row.product.ItemName)
		if _, exists := byKey[key]; exists {
			continue
		}
		byKey[key] = row.rowID
		kept = append(kept, row)
	}

	s.rows = kept
	s.byKey = byKey
	s.indexed = true
	return nil
}

func (s *Store) LoadAll(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := slices.Clone(s.rows)
	slices.SortFunc(rows, func(a, b record) int {
		if c := cmp.Compare(b.product.CreatedAt, a.product.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.rowID, a.rowID)
	})

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.product)
	}
	return products, nil
}

func (s *Store) Search(_ context.Context, text string, limit int) ([]domain.Product, error) {
	term := store.SearchTerm(text)
	if term == "" {
		return []domain.Product{}, nil
	}
	limit = store.NormalizeLimit(limit)

	s.mu.RLock()
	matches := make([]domain.Product, 0, limit)
	for _, row := range s.rows {
		if strings.Contains(store.SearchTerm(row.product.ItemName), term) {
			matches = append(matches, row.product)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matches, func(a, b domain.Product) int {
		return cmp.Compare(a.ItemName, b.ItemName)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) AddIfMissing(_ context.Context, input domain.ProductInput) (domain.AddProductResult, error) {
	itemName := store.CleanName(input.ItemName)
	if itemName == "" {
		return domain.AddProductResult{}, store.ErrItemNameRequired
	}
	key := store.NameKey(itemName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.indexed {
		// Without the unique index a scan is the only safe lookup.
		for _, row := range s.rows {
			if store.NameKey(row.product.ItemName) == key {
				return domain.AddProductResult{WasCreated: false, Product: row.product}, nil
			}
		}
	} else if rowID, exists := s.byKey[key]; exists {
		if row, ok := s.findRow(rowID); ok {
			return domain.AddProductResult{WasCreated: false, Product: row.product}, nil
		}
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

	s.nextRowID++
	s.rows = append(s.rows, record{rowID: s.nextRowID, product: product})
	if s.indexed {
		s.byKey[key] = s.nextRowID
	}
	return domain.AddProductResult{WasCreated: true, Product: product}, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) findRow(rowID int64) (record, bool) {
	idx := slices.IndexFunc(s.rows, func(r record) bool { return r.rowID == rowID })
	if idx < 0 {
		return record{}, false
	}
	return s.rows[idx], true
}
