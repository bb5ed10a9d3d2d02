package invoice

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
	// ErrInvalidInput indicates the request cannot be applied.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates the invoice number is already taken.
	ErrConflict = errors.New("invoice number already exists")
	// ErrClientNotFound indicates the referenced client does not exist.
	ErrClientNotFound = errors.New("client not found")
	// ErrOverpayment indicates a payment larger than the balance due.
	ErrOverpayment = errors.New("payment exceeds balance due")
)

// DateLayout is the wire format of issue and due dates.
const DateLayout = "2006-01-02"

// Status is derived from the paid amount relative to the grand total.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusUnpaid  Status = "unpaid"
	StatusPartial Status = "partial"
)

// ParseStatusFilter maps a query value to a status filter; "" and "all" mean no filter.
func ParseStatusFilter(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case "", "all":
		return "", true
	case StatusPaid, StatusUnpaid, StatusPartial:
		return s, true
	default:
		return "", false
	}
}

// DeriveStatus classifies an invoice. A zero-total invoice counts as paid.
func DeriveStatus(grandTotal, paid pricing.Money) Status {
	switch {
	case paid.GreaterThanOrEqual(grandTotal):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// Item is a stored invoice row.
type Item struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description,omitempty"`
	UnitPrice     pricing.Money        `json:"unitPrice"`
	Quantity      int                  `json:"quantity"`
	DiscountKind  pricing.DiscountKind `json:"discountType"`
	DiscountValue pricing.Money        `json:"discountValue"`
	Total         pricing.Money        `json:"total"`
}

// LineItem converts the row into its pricing input.
func (it Item) LineItem() pricing.LineItem {
	return pricing.LineItem{
		UnitPrice:     it.UnitPrice,
		Quantity:      it.Quantity,
		DiscountKind:  it.DiscountKind,
		DiscountValue: it.DiscountValue,
	}
}

// Invoice is the persisted invoice with its computed totals.
type Invoice struct {
	ID                string        `json:"id"`
	Number            string        `json:"invoiceNumber"`
	ClientID          string        `json:"clientId,omitempty"`
	ClientName        string        `json:"clientName"`
	IssueDate         string        `json:"issueDate"`
	DueDate           string        `json:"dueDate"`
	Currency          currency.Code `json:"currency"`
	TaxRate           pricing.Money `json:"taxRate"`
	DepositPercentage pricing.Money `json:"depositPercentage"`
	pricing.Summary
	PaidAmount pricing.Money `json:"paidAmount"`
	Status     Status        `json:"status"`
	Notes      string        `json:"notes,omitempty"`
	Items      []Item        `json:"items"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// BalanceDue is what the client still owes, never negative.
func (inv Invoice) BalanceDue() pricing.Money {
	due := inv.GrandTotal.Sub(inv.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Filter narrows list queries. Zero values match everything.
type Filter struct {
	Query    string
	Status   Status
	ClientID string
}

// Matches applies the filter to a single invoice.
func (f Filter) Matches(inv Invoice) bool {
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if f.ClientID != "" && inv.ClientID != f.ClientID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(inv.Number), q) && !strings.Contains(strings.ToLower(inv.ClientName), q) {
			return false
		}
	}
	return true
}

// Totals aggregates a filtered invoice set.
type Totals struct {
	Count          int           `json:"count"`
	TotalAmount    pricing.Money `json:"totalAmount"`
	TotalPaid      pricing.Money `json:"totalPaid"`
	TotalRemaining pricing.Money `json:"totalRemaining"`
}

// Add folds one invoice into the totals.
func (t *Totals) Add(inv Invoice) {
	t.Count++
	t.TotalAmount = t.TotalAmount.Add(inv.GrandTotal)
	t.TotalPaid = t.TotalPaid.Add(inv.PaidAmount)
	t.TotalRemaining = t.TotalRemaining.Add(inv.BalanceDue())
}

// ClientStats summarises the invoices of one client.
type ClientStats struct {
	TotalInvoices int           `json:"totalInvoices"`
	TotalAmount   pricing.Money `json:"totalAmount"`
}
