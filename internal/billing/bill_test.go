package billing

import (
	"testing"

	"autobill/backend/internal/domain"
)

func TestNewBillKeepsOrderAndCopiesInput(t *testing.T) {
	first := CreateBillItem("Oil Filter", "", "3", "150", "10")
	second := CreateBillItem("Air Filter", "", "1", "200", "")

	input := []domain.LineItem{first, second}
	bill := NewBill(input...)
	input[0] = second

	if NewBill().Len() != 0 || bill.Len() != 2 {
		t.Fatalf("unexpected lengths: %d %d", NewBill().Len(), bill.Len())
	}
	items := bill.Items()
	if items[0].ID != first.ID || items[1].ID != second.ID {
		t.Fatalf("expected insertion order to be preserved")
	}
}

func TestBillReplaceSwapsWholeRecord(t *testing.T) {
	original := CreateBillItem("Oil Filter", "", "3", "150", "10")
	bill := NewBill(original)

	edited := CreateBillItem("Oil Filter", "", "4", "150", "10")
	next, ok := bill.Replace(original.ID, edited)
	if !ok {
		t.Fatalf("expected replace to find item")
	}
	if bill.Items()[0].Amount != 405 {
		t.Fatalf("original bill must not change")
	}
	if next.Items()[0].Amount != 540 {
		t.Fatalf("expected replaced amount 540, got %v", next.Items()[0].Amount)
	}
	if next.Totals(true).GrandTotal != 540 {
		t.Fatalf("expected totals to follow the replacement")
	}

	if _, ok := bill.Replace("missing", edited); ok {
		t.Fatalf("expected replace of unknown id to report false")
	}
}

func TestBillRemove(t *testing.T) {
	a := CreateBillItem("Horn", "", "1", "300", "")
	b := CreateBillItem("Mirror", "", "2", "120", "")
	bill := NewBill(a, b)

	next, ok := bill.Remove(a.ID)
	if !ok || next.Len() != 1 || next.Items()[0].ID != b.ID {
		t.Fatalf("unexpected remove result: ok=%t items=%+v", ok, next.Items())
	}
	if bill.Len() != 2 {
		t.Fatalf("original bill must not change")
	}
}

func TestBillItemsReturnsCopy(t *testing.T) {
	bill := NewBill(domain.LineItem{ID: "x", Amount: 10})
	items := bill.Items()
	items[0].Amount = 99
	if bill.Items()[0].Amount != 10 {
		t.Fatalf("mutating the returned slice must not affect the bill")
	}
}
