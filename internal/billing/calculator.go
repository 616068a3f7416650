// Package billing turns raw line-item input into priced line items and bill
// totals. Everything here is pure: no I/O, no shared state.
package billing

import (
	"errors"
	"math"
	"strings"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/xid"
)

const (
	MsgItemNameRequired = "Item name is required"
	MsgQuantityRequired = "Valid quantity is required"
	MsgPriceRequired    = "Valid price is required"
	MsgDiscountRange    = "Discount must be between 0-100%"
	MsgAmountTooLarge   = "Amount is too large"
)

// ValidationError is a user-facing input problem. It never carries more than
// one message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ValidateItemInput checks the raw fields in order and returns the first
// failure, or nil.
func ValidateItemInput(itemName, quantity, listPrice, discount string) error {
	qty := parseDecimal(quantity)
	list := parseDecimal(listPrice)
	discountPercent := parseDiscount(discount)

	if strings.TrimSpace(itemName) == "" {
		return &ValidationError{Message: MsgItemNameRequired}
	}
	if !isPositive(qty) {
		return &ValidationError{Message: MsgQuantityRequired}
	}
	if !isPositive(list) {
		return &ValidationError{Message: MsgPriceRequired}
	}
	if discountPercent < 0 || discountPercent > 100 {
		return &ValidationError{Message: MsgDiscountRange}
	}
	// Each field can be finite while their product overflows.
	if !IsFinite((list - list*(discountPercent/100)) * qty) {
		return &ValidationError{Message: MsgAmountTooLarge}
	}
	return nil
}

// CreateBillItem prices one line item. It does not validate: callers that
// skip ValidateItemInput get NaN-tainted amounts. Prefer AddLineItem.
func CreateBillItem(itemName, vehicleBrand, quantity, listPrice, discount string) domain.LineItem {
	qty := parseDecimal(quantity)
	list := parseDecimal(listPrice)
	discountPercent := parseDiscount(discount)

	discountAmount := list * (discountPercent / 100)
	net := list - discountAmount
	amount := net * qty

	return domain.LineItem{
		ID:              xid.New("item"),
		ItemName:        itemName,
		VehicleBrand:    vehicleBrand,
		Quantity:        qty,
		ListPrice:       list,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		Net:             net,
		Amount:          amount,
	}
}

// AddLineItem validates the input and, only if it passes, prices it.
func AddLineItem(in domain.ItemInput) (domain.LineItem, error) {
	if err := ValidateItemInput(in.ItemName, in.Quantity, in.ListPrice, in.Discount); err != nil {
		return domain.LineItem{}, err
	}
	return CreateBillItem(in.ItemName, in.VehicleBrand, in.Quantity, in.ListPrice, in.Discount), nil
}

// CalculateTotals folds the items into a grand total and, for GST-exclusive
// bills, the GST backed out of each amount. No rounding is applied.
func CalculateTotals(items []domain.LineItem, gstIncluded bool) domain.BillTotals {
	var totals domain.BillTotals
	for _, item := range items {
		totals.GrandTotal += item.Amount
		if !gstIncluded {
			totals.TotalGST += item.Amount * domain.GSTRate / (1 + domain.GSTRate)
		}
	}
	return totals
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// isPositive rejects zero, negatives, NaN and infinities.
func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
