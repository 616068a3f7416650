// Package invoice turns a finished bill into a printable HTML document and a
// plain-text preview.
package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"autobill/backend/internal/domain"
)

const (
	DefaultBillPrefix = "BILL-"
	DateLayout        = "02/01/2006"

	noteIncluded = "(GST @18% included in Price)"
	noteExcluded = "(GST @18% calculated separately)"
)

var (
	ErrEmptyInvoice     = errors.New("invoice has no items")
	ErrAmountOutOfRange = errors.New("invoice amounts are out of range")
)

type Renderer struct {
	shop   domain.ShopProfile
	prefix string
}

func NewRenderer(shop domain.ShopProfile, billPrefix string) *Renderer {
	if strings.TrimSpace(billPrefix) == "" {
		billPrefix = DefaultBillPrefix
	}
	return &Renderer{shop: shop, prefix: billPrefix}
}

type row struct {
	SL        int
	ItemName  string
	Brand     string
	Quantity  string
	ListPrice string
	Discount  string
	Net       string
	Amount    string
}

type view struct {
	Shop      domain.ShopProfile
	ShowGSTIN bool
	Number    string
	Date      string
	Customer  string
	Rows      []row
	Subtotal  string
	GST       string
	ShowGST   bool
	Total     string
	Note      string
}

// Render lays out req with totals computed by the caller. now fixes the bill
// number, date and file name.
func (r *Renderer) Render(req domain.InvoiceRequest, totals domain.BillTotals, now time.Time) (domain.Invoice, error) {
	if len(req.Items) == 0 {
		return domain.Invoice{}, ErrEmptyInvoice
	}
	if !printable(req.Items, totals) {
		return domain.Invoice{}, ErrAmountOutOfRange
	}

	millis := now.UnixMilli()
	v := view{
		Shop:      r.shop,
		ShowGSTIN: req.ShowGSTIN && strings.TrimSpace(r.shop.GSTIN) != "",
		Number:    r.prefix + lastDigits(millis, 6),
		Date:      now.Format(DateLayout),
		Customer:  orDefault(req.CustomerName, "N/A"),
		Subtotal:  money(totals.GrandTotal),
		GST:       money(totals.TotalGST),
		ShowGST:   !req.GSTIncluded,
		Total:     money(totals.Payable()),
		Note:      noteExcluded,
	}
	if req.GSTIncluded {
		v.Note = noteIncluded
	}
	for i, item := range req.Items {
		v.Rows = append(v.Rows, row{
			SL:        i + 1,
			ItemName:  item.ItemName,
			Brand:     orDefault(item.VehicleBrand, "-"),
			Quantity:  number(item.Quantity),
			ListPrice: money(item.ListPrice),
			Discount:  number(item.DiscountPercent) + "%",
			Net:       money(item.Net),
			Amount:    money(item.Amount),
		})
	}

	var buf bytes.Buffer
	if err := invoiceHTMLTmpl.Execute(&buf, v); err != nil {
		return domain.Invoice{}, fmt.Errorf("invoice: render html: %w", err)
	}

	items := make([]domain.LineItem, len(req.Items))
	copy(items, req.Items)

	return domain.Invoice{
		BillNumber:   v.Number,
		Date:         v.Date,
		CustomerName: v.Customer,
		Items:        items,
		Totals:       totals,
		Payable:      totals.Payable(),
		GSTIncluded:  req.GSTIncluded,
		ShowGSTIN:    v.ShowGSTIN,
		HTML:         buf.String(),
		PreviewText:  preview(v),
		FileName:     "Bill_" + strconv.FormatInt(millis, 10) + ".html",
		GeneratedAt:  now,
	}, nil
}

func preview(v view) string {
	var b strings.Builder
	if v.Shop.NameLocal != "" {
		fmt.Fprintln(&b, v.Shop.NameLocal)
	}
	fmt.Fprintln(&b, v.Shop.Name)
	if v.ShowGSTIN {
		fmt.Fprintf(&b, "GSTIN: %s\n", v.Shop.GSTIN)
	}
	fmt.Fprintf(&b, "Bill #%s  Date: %s\n", v.Number, v.Date)
	fmt.Fprintf(&b, "Bill To: %s\n", v.Customer)
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	for _, r := range v.Rows {
		fmt.Fprintf(&b, "%d. %s (%s) %s x Rs. %s [%s off] = Rs. %s\n", r.SL, r.ItemName, r.Brand, r.Quantity, r.Net, r.Discount, r.Amount)
	}
	fmt.Fprintln(&b, strings.Repeat("-", 40))
	fmt.Fprintf(&b, "Subtotal: Rs. %s\n", v.Subtotal)
	if v.ShowGST {
		fmt.Fprintf(&b, "GST (18%%): Rs. %s\n", v.GST)
	}
	fmt.Fprintf(&b, "GRAND TOTAL: Rs. %s\n", v.Total)
	fmt.Fprintln(&b, v.Note)
	return b.String()
}

// printable reports whether every figure on the invoice is a finite number.
func printable(items []domain.LineItem, totals domain.BillTotals) bool {
	figures := []float64{totals.GrandTotal, totals.TotalGST, totals.Payable()}
	for _, item := range items {
		figures = append(figures, item.Quantity, item.ListPrice, item.DiscountPercent, item.Net, item.Amount)
	}
	for _, v := range figures {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func money(value float64) string {
	// decimal panics on NaN and infinities.
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', 2, 64)
	}
	return decimal.NewFromFloat(value).StringFixed(2)
}

func number(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func lastDigits(value int64, n int) string {
	s := strconv.FormatInt(value, 10)
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var invoiceHTMLTmpl = template.Must(template.New("invoice").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Number}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; color: #1F2937; }
    .header { display: flex; justify-content: space-between; border-bottom: 2px solid #2563EB; padding-bottom: 12px; }
    table { width: 100%; border-collapse: collapse; margin-top: 16px; }
    th, td { border: 1px solid #E5E7EB; padding: 6px; font-size: 13px; }
    th { background: #2563EB; color: #fff; }
    .summary { margin-top: 16px; margin-left: auto; width: 320px; }
    .summary-row { display: flex; justify-content: space-between; padding: 4px 0; }
    .total { font-weight: bold; border-top: 2px solid #1F2937; }
    .note { font-size: 12px; color: #999; text-align: center; margin-top: 12px; }
  </style>
</head>
<body>
  <div class="header">
    <div class="company-info">
      {{if .Shop.NameLocal}}<h1>{{.Shop.NameLocal}}</h1>{{end}}
      <h1 style="font-size: 20px;">{{.Shop.Name}}</h1>
      {{if .Shop.Address}}<p>Address: {{.Shop.Address}}</p>{{end}}
      {{if .Shop.Phone}}<p>Phone: {{.Shop.Phone}}</p>{{end}}
      {{if .Shop.Owner}}<p>Owner: {{.Shop.Owner}}</p>{{end}}
      {{if .ShowGSTIN}}<p>GSTIN: {{.Shop.GSTIN}}</p>{{end}}
    </div>
    <div class="bill-header">
      <h2>INVOICE</h2>
      <p>Bill #{{.Number}}</p>
      <p>Date: {{.Date}}</p>
    </div>
  </div>

  <h3>Bill To</h3>
  <p>{{.Customer}}</p>

  <table>
    <thead>
      <tr><th>SL</th><th>Item Name</th><th>Vehicle Brand</th><th>Qty</th><th>List Price</th><th>Discount</th><th>Net Price</th><th>Amount</th></tr>
    </thead>
    <tbody>{{range .Rows}}
      <tr><td>{{.SL}}</td><td>{{.ItemName}}</td><td>{{.Brand}}</td><td align="center">{{.Quantity}}</td><td align="right">Rs. {{.ListPrice}}</td><td align="center">{{.Discount}}</td><td align="right">Rs. {{.Net}}</td><td align="right">Rs. {{.Amount}}</td></tr>{{end}}
    </tbody>
  </table>

  <div class="summary">
    <div class="summary-row"><span>Subtotal:</span><span>Rs. {{.Subtotal}}</span></div>
    {{if .ShowGST}}<div class="summary-row"><span>GST (18%):</span><span>Rs. {{.GST}}</span></div>{{end}}
    <div class="summary-row total"><span>GRAND TOTAL:</span><span>Rs. {{.Total}}</span></div>
    <div class="note">{{.Note}}</div>
  </div>

  <p>Thank you for your business.</p>
  <p style="font-size: 11px; color: #6B7280;">This is an electronically generated invoice.</p>
</body>
</html>
`))
