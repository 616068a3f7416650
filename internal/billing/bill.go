package billing

import (
	"slices"

	"autobill/backend/internal/domain"
)

// Bill is an ordered, immutable list of line items. Every mutator returns a
// new Bill and leaves the receiver untouched.
type Bill struct {
	items []domain.LineItem
}

func NewBill(items ...domain.LineItem) Bill {
	return Bill{items: slices.Clone(items)}
}

func (b Bill) Items() []domain.LineItem {
	return slices.Clone(b.items)
}

func (b Bill) Len() int {
	return len(b.items)
}

// Replace swaps the item with the given id for item, keeping its position.
// The bool is false when no item has that id.
func (b Bill) Replace(id string, item domain.LineItem) (Bill, bool) {
	idx := b.indexOf(id)
	if idx < 0 {
		return b, false
	}
	next := slices.Clone(b.items)
	next[idx] = item
	return Bill{items: next}, true
}

func (b Bill) Remove(id string) (Bill, bool) {
	idx := b.indexOf(id)
	if idx < 0 {
		return b, false
	}
	next := slices.Delete(slices.Clone(b.items), idx, idx+1)
	return Bill{items: next}, true
}

// Totals is recomputed on every call so it always reflects the current items
// and flag.
func (b Bill) Totals(gstIncluded bool) domain.BillTotals {
	return CalculateTotals(b.items, gstIncluded)
}

func (b Bill) indexOf(id string) int {
	return slices.IndexFunc(b.items, func(item domain.LineItem) bool {
		return item.ID == id
	})
}
