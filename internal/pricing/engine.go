package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary amount. The engine does not round; precision is the caller's concern.
type Money = decimal.Decimal

// DiscountKind selects how a line item discount is applied.
type DiscountKind string

const (
	// DiscountNone applies no discount.
	DiscountNone DiscountKind = "none"
	// DiscountFixed subtracts an absolute amount from the line base.
	DiscountFixed DiscountKind = "fixed"
	// DiscountPercentage subtracts a percentage (0-100) of the line base.
	DiscountPercentage DiscountKind = "percentage"
)

var hundred = decimal.NewFromInt(100)

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseDiscountKind normalises the wire representation. Unknown values map to DiscountNone.
func ParseDiscountKind(value string) DiscountKind {
	switch DiscountKind(strings.ToLower(strings.TrimSpace(value))) {
	case DiscountFixed:
		return DiscountFixed
	case DiscountPercentage:
		return DiscountPercentage
	default:
		return DiscountNone
	}
}

// LineItem describes one billable row used for pricing calculation.
type LineItem struct {
	UnitPrice     Money
	Quantity      int
	DiscountKind  DiscountKind
	DiscountValue Money
}

// NewLineItem returns the default line used when a row is added to a draft.
func NewLineItem() LineItem {
	return LineItem{
		UnitPrice:     decimal.Zero,
		Quantity:      1,
		DiscountKind:  DiscountNone,
		DiscountValue: decimal.Zero,
	}
}

// LineTotal recomputes the line total from the current field values.
func (it LineItem) LineTotal() Money {
	return LineTotal(it.UnitPrice, it.Quantity, it.DiscountKind, it.DiscountValue)
}

// Summary aggregates the document level roll-up.
type Summary struct {
	Subtotal         Money `json:"subtotal"`
	TaxAmount        Money `json:"taxAmount"`
	GrandTotal       Money `json:"grandTotal"`
	DepositAmount    Money `json:"depositAmount"`
	RemainingBalance Money `json:"remainingBalance"`
}

// Quote pairs per-line totals (in input order) with the document summary.
type Quote struct {
	LineTotals []Money `json:"lineTotals"`
	Summary
}

// LineTotal computes max(0, unitPrice*quantity - discount). Inputs are not validated.
func LineTotal(unitPrice Money, quantity int, kind DiscountKind, value Money) Money {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	discount := decimal.Zero
	switch kind {
	case DiscountFixed:
		discount = value
	case DiscountPercentage:
		discount = base.Mul(value).Div(hundred)
	}
	total := base.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Summarize folds already computed line totals into the document summary.
func Summarize(lineTotals []Money, taxRatePercent, depositPercent Money) Summary {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}
	tax := subtotal.Mul(taxRatePercent).Div(hundred)
	grand := subtotal.Add(tax)
	deposit := grand.Mul(depositPercent).Div(hundred)
	return Summary{
		Subtotal:         subtotal,
		TaxAmount:        tax,
		GrandTotal:       grand,
		DepositAmount:    deposit,
		RemainingBalance: grand.Sub(deposit),
	}
}

// Compute prices every line in order and rolls the results up.
func Compute(items []LineItem, taxRatePercent, depositPercent Money) Quote {
	totals := make([]Money, 0, len(items))
	for _, it := range items {
		totals = append(totals, it.LineTotal())
	}
	return Quote{
		LineTotals: totals,
		Summary:    Summarize(totals, taxRatePercent, depositPercent),
	}
}
