package domain

import "time"

// GSTRate is the fixed Goods and Services Tax rate applied to every bill.
const GSTRate = 0.18

// ItemInput carries the raw text a cashier typed for one line item.
type ItemInput struct {
	ItemName     string `json:"item_name"`
	VehicleBrand string `json:"vehicle_brand"`
	Quantity     string `json:"quantity"`
	ListPrice    string `json:"list_price"`
	Discount     string `json:"discount"`
}

// LineItem is one priced row of a bill. It is never mutated after creation;
// edits replace the whole record.
type LineItem struct {
	ID              string  `json:"id"`
	ItemName        string  `json:"item_name"`
	VehicleBrand    string  `json:"vehicle_brand"`
	Quantity        float64 `json:"quantity"`
	ListPrice       float64 `json:"list_price"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	Net             float64 `json:"net"`
	Amount          float64 `json:"amount"`
}

type BillTotals struct {
	GrandTotal float64 `json:"grand_total"`
	TotalGST   float64 `json:"total_gst"`
}

// Payable is the amount printed as the invoice grand total.
func (t BillTotals) Payable() float64 {
	return t.GrandTotal + t.TotalGST
}

type TotalsRequest struct {
	Items       []LineItem `json:"items"`
	GSTIncluded bool       `json:"gst_included"`
}

type TotalsResponse struct {
	GrandTotal float64 `json:"grand_total"`
	TotalGST   float64 `json:"total_gst"`
	Payable    float64 `json:"payable"`
	ItemCount  int     `json:"item_count"`
}

// Product is a catalog entry used for item-name autocomplete.
type Product struct {
	ID           string  `json:"id"`
	ItemName     string  `json:"item_name"`
	VehicleBrand string  `json:"vehicle_brand"`
	ListPrice    float64 `json:"list_price"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type ProductInput struct {
	ItemName     string  `json:"item_name"`
	VehicleBrand string  `json:"vehicle_brand"`
	ListPrice    float64 `json:"list_price"`
}

type AddProductResult struct {
	WasCreated bool    `json:"was_created"`
	Product    Product `json:"product"`
}

// SearchResult echoes the caller's sequence number so a client can drop
// responses that arrive after a newer query was answered.
type SearchResult struct {
	Seq      uint64    `json:"seq"`
	Query    string    `json:"query"`
	Products []Product `json:"products"`
	// Stale is set when a newer server-sequenced search finished first.
	Stale bool `json:"stale,omitempty"`
}

type AddLineItemRequest struct {
	ItemInput
	RecordInCatalog *bool `json:"record_in_catalog,omitempty"`
}

type AddLineItemResponse struct {
	Item    LineItem          `json:"item"`
	Catalog *AddProductResult `json:"catalog,omitempty"`
}

// BillEditRequest edits one line of a bill the client holds. Input is only
// read by replace.
type BillEditRequest struct {
	Items       []LineItem `json:"items"`
	ItemID      string     `json:"item_id"`
	Input       *ItemInput `json:"input,omitempty"`
	GSTIncluded bool       `json:"gst_included"`
}

type BillEditResponse struct {
	Items  []LineItem     `json:"items"`
	Totals TotalsResponse `json:"totals"`
}

type ValidateItemResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type InvoiceRequest struct {
	CustomerName string     `json:"customer_name"`
	Items        []LineItem `json:"items"`
	GSTIncluded  bool       `json:"gst_included"`
	ShowGSTIN    bool       `json:"show_gstin"`
}

type Invoice struct {
	BillNumber   string     `json:"bill_number"`
	Date         string     `json:"date"`
	CustomerName string     `json:"customer_name"`
	Items        []LineItem `json:"items"`
	Totals       BillTotals `json:"totals"`
	Payable      float64    `json:"payable"`
	GSTIncluded  bool       `json:"gst_included"`
	ShowGSTIN    bool       `json:"show_gstin"`
	HTML         string     `json:"html"`
	PreviewText  string     `json:"preview_text"`
	FileName     string     `json:"file_name"`
	GeneratedAt  time.Time  `json:"generated_at"`
}

// ShopProfile is the letterhead printed on every invoice.
type ShopProfile struct {
	Name      string
	NameLocal string
	Address   string
	Phone     string
	Owner     string
	GSTIN     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}
