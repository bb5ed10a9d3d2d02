package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

const maxNumberAttempts = 5

// ClientDirectory resolves the client name snapshot stored on invoices.
type ClientDirectory interface {
	ClientName(ctx context.Context, id string) (name string, found bool, err error)
}

// ItemInput is one row of a draft.
type ItemInput struct {
	Title         string
	Description   string
	UnitPrice     pricing.Money
	Quantity      int
	DiscountKind  pricing.DiscountKind
	DiscountValue pricing.Money
}

// Draft carries the pricing inputs of an invoice.
type Draft struct {
	Items             []ItemInput
	TaxRate           pricing.Money
	DepositPercentage pricing.Money
}

// Input captures everything needed to create or replace an invoice.
type Input struct {
	Draft
	Number     string
	ClientID   string
	ClientName string
	IssueDate  string
	DueDate    string
	Currency   currency.Code
	Notes      string
}

// ListResult is one page of invoices plus totals over the whole filtered set.
type ListResult struct {
	Items  []Invoice
	Total  int
	Totals Totals
}

// Service orchestrates invoice persistence around the pricing engine.
type Service struct {
	Store           Store
	Clients         ClientDirectory
	Events          *events.Bus
	Logger          zerolog.Logger
	DefaultCurrency currency.Code
	Locks           lock.Locker
	Now             func() time.Time
}

// GenerateNumber derives an invoice number from the last six digits of the unix millisecond clock.
func GenerateNumber(t time.Time) string {
	return fmt.Sprintf("INV-%06d", t.UnixMilli()%1_000_000)
}

// Preview prices a draft without persisting anything.
func (s *Service) Preview(d Draft) pricing.Quote {
	return pricing.Compute(lineItems(d.Items), d.TaxRate, d.DepositPercentage)
}

// Create prices and stores a new invoice. An empty number is generated.
func (s *Service) Create(ctx context.Context, in Input) (Invoice, error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errors.New("invoice service not configured")
	}
	now := s.now()
	inv := Invoice{ID: uuid.NewString(), PaidAmount: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	if err := s.apply(ctx, &inv, in); err != nil {
		return Invoice{}, err
	}

	number := strings.TrimSpace(in.Number)
	for attempt := 0; ; attempt++ {
		inv.Number = number
		if number == "" {
			inv.Number = GenerateNumber(now.Add(time.Duration(attempt) * time.Millisecond))
		}
		err := s.Store.Create(ctx, inv)
		if err == nil {
			break
		}
		if errors.Is(err, ErrConflict) && number == "" && attempt < maxNumberAttempts-1 {
			continue
		}
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	grand, _ := inv.GrandTotal.Float64()
	obs.ObserveInvoiceCreated(string(inv.Currency), grand)
	s.emit(ctx, events.TopicInvoiceCreated, inv.ID, map[string]any{
		"invoiceNumber": inv.Number,
		"clientId":      inv.ClientID,
		"grandTotal":    inv.GrandTotal,
		"currency":      inv.Currency,
	})
	return inv, nil
}

// Update replaces the invoice contents and recomputes totals. Payments are kept.
func (s *Service) Update(ctx context.Context, id string, in Input) (Invoice, error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errors.New("invoice service not configured")
	}
	var inv Invoice
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		var err error
		inv, err = s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, &inv, in); err != nil {
			return err
		}
		if inv.PaidAmount.GreaterThan(inv.GrandTotal) {
			return fmt.Errorf("grand total %s is below paid amount %s: %w", inv.GrandTotal.String(), inv.PaidAmount.String(), ErrOverpayment)
		}
		if number := strings.TrimSpace(in.Number); number != "" {
			inv.Number = number
		}
		inv.UpdatedAt = s.now()
		if err := s.Store.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.emit(ctx, events.TopicInvoiceUpdated, inv.ID, map[string]any{
		"invoiceNumber": inv.Number,
		"grandTotal":    inv.GrandTotal,
		"status":        inv.Status,
	})
	return inv, nil
}

// Get returns a single invoice.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errors.New("invoice service not configured")
	}
	return s.Store.Get(ctx, id)
}

// List filters invoices, computes totals over every match and returns the requested page.
func (s *Service) List(ctx context.Context, f Filter, page, perPage int) (ListResult, error) {
	if s == nil || s.Store == nil {
		return ListResult{}, errors.New("invoice service not configured")
	}
	all, err := s.Store.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list invoices: %w", err)
	}
	totals := Totals{TotalAmount: decimal.Zero, TotalPaid: decimal.Zero, TotalRemaining: decimal.Zero}
	for _, inv := range all {
		totals.Add(inv)
	}
	start, end := common.Window(len(all), page, perPage)
	return ListResult{Items: all[start:end], Total: len(all), Totals: totals}, nil
}

// Delete removes the invoice and its items.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return errors.New("invoice service not configured")
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.TopicInvoiceDeleted, id, nil)
	return nil
}

// RecordPayment adds a positive amount to the paid total and re-derives the status.
func (s *Service) RecordPayment(ctx context.Context, id string, amount pricing.Money) (Invoice, error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errors.New("invoice service not configured")
	}
	if !amount.IsPositive() {
		return Invoice{}, fmt.Errorf("payment amount must be positive: %w", ErrInvalidInput)
	}
	var inv Invoice
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		var err error
		inv, err = s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if amount.GreaterThan(inv.BalanceDue()) {
			return fmt.Errorf("balance due is %s: %w", inv.BalanceDue().String(), ErrOverpayment)
		}
		inv.PaidAmount = inv.PaidAmount.Add(amount)
		inv.Status = DeriveStatus(inv.GrandTotal, inv.PaidAmount)
		inv.UpdatedAt = s.now()
		if err := s.Store.Update(ctx, inv); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	obs.ObservePayment(string(inv.Status))
	s.emit(ctx, events.TopicInvoicePaymentRecorded, inv.ID, map[string]any{
		"amount":     amount,
		"paidAmount": inv.PaidAmount,
		"status":     inv.Status,
	})
	return inv, nil
}

// StatsByClient exposes per-client totals for the client views.
func (s *Service) StatsByClient(ctx context.Context, clientID string) (ClientStats, error) {
	if s == nil || s.Store == nil {
		return ClientStats{TotalAmount: decimal.Zero}, nil
	}
	return s.Store.StatsByClient(ctx, clientID)
}

// DetachClient drops the reference to a deleted client from its invoices.
func (s *Service) DetachClient(ctx context.Context, clientID string) error {
	if s == nil || s.Store == nil {
		return errors.New("invoice service not configured")
	}
	n, err := s.Store.DetachClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("detach client %s: %w", clientID, err)
	}
	if n > 0 {
		s.Logger.Debug().Str("client_id", clientID).Int("invoices", n).Msg("detached deleted client")
	}
	return nil
}

// ClientDetacher detaches invoices when a client.deleted event is emitted.
type ClientDetacher struct {
	Service *Service
}

// Notify implements events.Notifier.
func (c ClientDetacher) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicClientDeleted {
		return nil
	}
	return c.Service.DetachClient(ctx, ev.AggregateID)
}

func (s *Service) apply(ctx context.Context, inv *Invoice, in Input) error {
	code := in.Currency
	if code == "" {
		code = s.DefaultCurrency
	}
	if code == "" {
		code = currency.USD
	}
	if !code.Valid() {
		return fmt.Errorf("unsupported currency %q: %w", code, ErrInvalidInput)
	}

	clientID := strings.TrimSpace(in.ClientID)
	clientName := strings.TrimSpace(in.ClientName)
	if clientID != "" && s.Clients != nil {
		name, found, err := s.Clients.ClientName(ctx, clientID)
		if err != nil {
			return fmt.Errorf("resolve client: %w", err)
		}
		if !found {
			return ErrClientNotFound
		}
		clientName = name
	}
	if clientName == "" {
		return fmt.Errorf("client is required: %w", ErrInvalidInput)
	}

	issue := strings.TrimSpace(in.IssueDate)
	if issue == "" {
		issue = s.now().Format(DateLayout)
	}
	due := strings.TrimSpace(in.DueDate)
	if due == "" {
		due = issue
	}
	if due < issue {
		return fmt.Errorf("due date %s is before issue date %s: %w", due, issue, ErrInvalidInput)
	}

	quote := s.Preview(in.Draft)
	items := make([]Item, len(in.Items))
	for i, row := range in.Items {
		items[i] = Item{
			ID:            uuid.NewString(),
			Title:         strings.TrimSpace(row.Title),
			Description:   strings.TrimSpace(row.Description),
			UnitPrice:     row.UnitPrice,
			Quantity:      row.Quantity,
			DiscountKind:  pricing.ParseDiscountKind(string(row.DiscountKind)),
			DiscountValue: row.DiscountValue,
			Total:         quote.LineTotals[i],
		}
	}

	inv.ClientID = clientID
	inv.ClientName = clientName
	inv.IssueDate = issue
	inv.DueDate = due
	inv.Currency = code
	inv.TaxRate = in.TaxRate
	inv.DepositPercentage = in.DepositPercentage
	inv.Summary = quote.Summary
	inv.Status = DeriveStatus(inv.GrandTotal, inv.PaidAmount)
	inv.Notes = strings.TrimSpace(in.Notes)
	inv.Items = items
	return nil
}

func (s *Service) emit(ctx context.Context, topic, id string, payload any) {
	if _, err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("invoice_id", id).Msg("emit invoice event")
	}
}

// withLock serialises writes to one invoice. Without a Locker fn runs directly.
func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.Locks == nil {
		return fn(ctx)
	}
	return s.Locks.WithLock(ctx, "invoice:"+id, 10*time.Second, fn)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func lineItems(rows []ItemInput) []pricing.LineItem {
	items := make([]pricing.LineItem, len(rows))
	for i, row := range rows {
		items[i] = pricing.LineItem{
			UnitPrice:     row.UnitPrice,
			Quantity:      row.Quantity,
			DiscountKind:  pricing.ParseDiscountKind(string(row.DiscountKind)),
			DiscountValue: row.DiscountValue,
		}
	}
	return items
}
