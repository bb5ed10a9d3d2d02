package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// InvoiceSource lists invoices with totals.
type InvoiceSource interface {
	List(ctx context.Context, f invoice.Filter, page, perPage int) (invoice.ListResult, error)
}

// RecentInvoice is one row of the recent invoices table.
type RecentInvoice struct {
	ID              string         `json:"id"`
	InvoiceNumber   string         `json:"invoiceNumber"`
	ClientName      string         `json:"clientName"`
	Amount          pricing.Money  `json:"amount"`
	Currency        currency.Code  `json:"currency"`
	Status          invoice.Status `json:"status"`
	DueDate         string         `json:"dueDate"`
	FormattedAmount string         `json:"formattedAmount"`
}

// Overview is the dashboard payload. Totals span every invoice; Recent honours the status filter.
type Overview struct {
	TotalInvoices  int             `json:"totalInvoices"`
	TotalSales     pricing.Money   `json:"totalSales"`
	TotalPaid      pricing.Money   `json:"totalPaid"`
	TotalRemaining pricing.Money   `json:"totalRemaining"`
	Status         string          `json:"status"`
	Recent         []RecentInvoice `json:"recentInvoices"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

var cachedStatuses = []string{"all", string(invoice.StatusPaid), string(invoice.StatusUnpaid), string(invoice.StatusPartial)}

// Service builds dashboard overviews, cached in Redis when configured.
type Service struct {
	Invoices    InvoiceSource
	R           *redis.Client
	TTL         time.Duration
	RecentLimit int
	Prefix      string
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) prefix() string {
	if s.Prefix == "" {
		return "dash"
	}
	return s.Prefix
}

func (s *Service) cacheKey(status string) string {
	return strings.Join([]string{s.prefix(), "overview", status}, ":")
}

// generationKey is bumped by Invalidate. An overview is only cached when the
// generation it was built under is still current.
func (s *Service) generationKey() string {
	return s.prefix() + ":gen"
}

var storeIfCurrent = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// Overview returns totals and the most recent invoices matching status ("" for all).
func (s *Service) Overview(ctx context.Context, status invoice.Status) (Overview, error) {
	if s == nil || s.Invoices == nil {
		return Overview{}, fmt.Errorf("dashboard service not configured")
	}
	label := string(status)
	if label == "" {
		label = "all"
	}
	key := s.cacheKey(label)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}
	gen := s.generation(ctx)

	all, err := s.Invoices.List(ctx, invoice.Filter{}, 1, 0)
	if err != nil {
		return Overview{}, fmt.Errorf("dashboard invoices: %w", err)
	}
	limit := s.RecentLimit
	if limit <= 0 {
		limit = 5
	}
	filter := invoice.Filter{Status: status}
	recent := make([]RecentInvoice, 0, limit)
	for _, inv := range all.Items {
		if len(recent) == limit {
			break
		}
		if !filter.Matches(inv) {
			continue
		}
		recent = append(recent, RecentInvoice{
			ID:              inv.ID,
			InvoiceNumber:   inv.Number,
			ClientName:      inv.ClientName,
			Amount:          inv.GrandTotal,
			Currency:        inv.Currency,
			Status:          inv.Status,
			DueDate:         inv.DueDate,
			FormattedAmount: currency.Format(inv.GrandTotal, inv.Currency),
		})
	}
	out := Overview{
		TotalInvoices:  all.Totals.Count,
		TotalSales:     all.Totals.TotalAmount,
		TotalPaid:      all.Totals.TotalPaid,
		TotalRemaining: all.Totals.TotalRemaining,
		Status:         label,
		Recent:         recent,
		GeneratedAt:    s.now(),
	}
	s.store(ctx, key, gen, out)
	return out, nil
}

// Invalidate drops every cached overview and bumps the generation so reads
// already in flight do not cache what they computed.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	keys := make([]string, len(cachedStatuses))
	for i, st := range cachedStatuses {
		keys[i] = s.cacheKey(st)
	}
	_, err := s.R.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.generationKey())
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

func (s *Service) generation(ctx context.Context) string {
	if s.R == nil || s.TTL <= 0 {
		return ""
	}
	gen, err := s.R.Get(ctx, s.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0"
	}
	if err != nil {
		return ""
	}
	return gen
}

func (s *Service) fromCache(ctx context.Context, key string) (Overview, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Overview{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			obs.ObserveDashboardCache("miss")
		} else {
			obs.ObserveDashboardCache("error")
		}
		return Overview{}, false
	}
	var out Overview
	if err := json.Unmarshal(data, &out); err != nil {
		obs.ObserveDashboardCache("error")
		return Overview{}, false
	}
	obs.ObserveDashboardCache("hit")
	return out, true
}

func (s *Service) store(ctx context.Context, key, gen string, value Overview) {
	if s.R == nil || s.TTL <= 0 || gen == "" {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	stored, err := storeIfCurrent.Run(ctx, s.R, []string{s.generationKey(), key}, gen, data, s.TTL.Milliseconds()).Int()
	if err == nil && stored == 0 {
		obs.ObserveDashboardCache("stale")
	}
}

// CacheInvalidator clears the dashboard cache whenever an invoice changes.
type CacheInvalidator struct {
	Service *Service
}

// Notify implements events.Notifier.
func (c CacheInvalidator) Notify(ctx context.Context, ev events.Event) error {
	if !events.IsInvoiceTopic(ev.Topic) {
		return nil
	}
	return c.Service.Invalidate(ctx)
}
