package invoice

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"autobill/backend/internal/domain"
)

var testShop = domain.ShopProfile{
	Name:      "Sharma Auto Parts",
	NameLocal: "शर्मा ऑटो पार्ट्स",
	Address:   "Main Road",
	Phone:     "+91 9800000000",
	Owner:     "R. Sharma",
	GSTIN:     "09ABCDE1234F1Z5",
}

var renderAt = time.Date(2024, 3, 5, 10, 0, 0, 123_000_000, time.UTC)

func sampleItems() []domain.LineItem {
	return []domain.LineItem{
		{ID: "item-1", ItemName: "Oil Filter", VehicleBrand: "Honda", Quantity: 3, ListPrice: 150, DiscountPercent: 10, DiscountAmount: 15, Net: 135, Amount: 405},
		{ID: "item-2", ItemName: "Brake Pad", Quantity: 1, ListPrice: 200, Net: 200, Amount: 200},
	}
}

func TestRenderGSTExclusive(t *testing.T) {
	r := NewRenderer(testShop, "BILL-")
	totals := domain.BillTotals{GrandTotal: 605, TotalGST: 108.9}

	inv, err := r.Render(domain.InvoiceRequest{Items: sampleItems(), ShowGSTIN: true}, totals, renderAt)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if inv.BillNumber != "BILL-800123" {
		t.Fatalf("unexpected bill number %q", inv.BillNumber)
	}
	if inv.Date != "05/03/2024" {
		t.Fatalf("unexpected date %q", inv.Date)
	}
	if inv.FileName != "Bill_1709632800123.html" {
		t.Fatalf("unexpected file name %q", inv.FileName)
	}
	if inv.CustomerName != "N/A" {
		t.Fatalf("expected N/A customer, got %q", inv.CustomerName)
	}
	if inv.Payable != totals.Payable() {
		t.Fatalf("unexpected payable %v", inv.Payable)
	}

	for _, want := range []string{
		"GST (18%):</span><span>Rs. 108.90",
		"GRAND TOTAL:</span><span>Rs. 713.90",
		"Rs. 605.00",
		"GSTIN: 09ABCDE1234F1Z5",
		"<td>-</td>",
		"<td align=\"center\">10%</td>",
		"(GST @18% calculated separately)",
	} {
		if !strings.Contains(inv.HTML, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if !strings.Contains(inv.PreviewText, "GRAND TOTAL: Rs. 713.90") {
		t.Fatalf("preview missing grand total:\n%s", inv.PreviewText)
	}
}

func TestRenderGSTInclusiveOmitsGSTRow(t *testing.T) {
	r := NewRenderer(testShop, "")
	totals := domain.BillTotals{GrandTotal: 605}

	inv, err := r.Render(domain.InvoiceRequest{CustomerName: "Amit", Items: sampleItems(), GSTIncluded: true}, totals, renderAt)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(inv.HTML, "GST (18%)") || strings.Contains(inv.PreviewText, "GST (18%)") {
		t.Fatalf("gst row must be hidden when prices include GST")
	}
	if !strings.Contains(inv.HTML, "(GST @18% included in Price)") {
		t.Fatalf("missing inclusive note")
	}
	if strings.Contains(inv.HTML, "GSTIN:") {
		t.Fatalf("gstin must be hidden unless requested")
	}
	if !strings.HasPrefix(inv.BillNumber, DefaultBillPrefix) {
		t.Fatalf("expected default prefix, got %q", inv.BillNumber)
	}
	if !strings.Contains(inv.HTML, "<p>Amit</p>") {
		t.Fatalf("missing customer name")
	}
}

func TestRenderEscapesUserText(t *testing.T) {
	r := NewRenderer(testShop, "BILL-")
	items := []domain.LineItem{{ItemName: "<script>x</script>", Quantity: 1, ListPrice: 1, Net: 1, Amount: 1}}

	inv, err := r.Render(domain.InvoiceRequest{Items: items}, domain.BillTotals{GrandTotal: 1, TotalGST: 0.18}, renderAt)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(inv.HTML, "<script>x</script>") {
		t.Fatalf("item name was not escaped")
	}
}

func TestRenderRejectsEmptyBill(t *testing.T) {
	r := NewRenderer(testShop, "BILL-")
	_, err := r.Render(domain.InvoiceRequest{}, domain.BillTotals{}, renderAt)
	if !errors.Is(err, ErrEmptyInvoice) {
		t.Fatalf("expected ErrEmptyInvoice, got %v", err)
	}
}

func TestRenderRejectsOverflowingAmounts(t *testing.T) {
	r := NewRenderer(testShop, "BILL-")
	items := []domain.LineItem{
		{ID: "item-1", ItemName: "Engine", Quantity: 1, ListPrice: 1e308, Net: 1e308, Amount: 1e308},
		{ID: "item-2", ItemName: "Gearbox", Quantity: 1, ListPrice: 1e308, Net: 1e308, Amount: 1e308},
	}
	totals := domain.BillTotals{GrandTotal: math.Inf(1), TotalGST: math.Inf(1)}

	_, err := r.Render(domain.InvoiceRequest{Items: items}, totals, renderAt)
	if !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}
}

func TestMoneyFormatsNonFiniteWithoutPanicking(t *testing.T) {
	if got := money(math.Inf(1)); got != "+Inf" {
		t.Fatalf("unexpected +Inf rendering %q", got)
	}
	if got := money(math.NaN()); got != "NaN" {
		t.Fatalf("unexpected NaN rendering %q", got)
	}
	if got := money(713.9); got != "713.90" {
		t.Fatalf("unexpected rendering %q", got)
	}
}
