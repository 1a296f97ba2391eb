package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatusFor derives a sale's payment status from its total and the
// amount paid so far. It is the only way status may be computed: paid when
// the bill is covered (which includes an empty, zero-total bill), partial
// when something but not everything has been paid, unpaid otherwise.
func PaymentStatusFor(total, paid decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case paid.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// SumSubtotals returns the derived bill total. Callers persist this after
// every item mutation so TotalAmount never drifts from the item set.
func SumSubtotals(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// LineSubtotal computes a single line's amount from its rate snapshot.
func LineSubtotal(rate decimal.Decimal, quantity int) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(quantity)))
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field detail for 400 responses.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
