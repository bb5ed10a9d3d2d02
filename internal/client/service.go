package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// InvoiceStats provides the derived invoice totals shown next to each client.
type InvoiceStats interface {
	StatsByClient(ctx context.Context, clientID string) (invoice.ClientStats, error)
}

// Input captures payload for creating or updating a client.
type Input struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Status  Status
}

// Summary is a client together with its invoice totals.
type Summary struct {
	Client
	TotalInvoices int           `json:"totalInvoices"`
	TotalAmount   pricing.Money `json:"totalAmount"`
}

// ListResult carries matching clients and header counters.
type ListResult struct {
	Items  []Summary
	Total  int
	Active int
}

// Service manages the client book.
type Service struct {
	Store    Store
	Invoices InvoiceStats
	Events   *events.Bus
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Create stores a new client. Status defaults to active.
func (s *Service) Create(ctx context.Context, in Input) (Summary, error) {
	if s == nil || s.Store == nil {
		return Summary{}, errors.New("client service not configured")
	}
	now := s.now()
	c := Client{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := apply(&c, in); err != nil {
		return Summary{}, err
	}
	if err := s.Store.Create(ctx, c); err != nil {
		return Summary{}, fmt.Errorf("create client: %w", err)
	}
	s.emit(ctx, events.TopicClientCreated, c)
	return Summary{Client: c, TotalAmount: decimal.Zero}, nil
}

// Update replaces the editable fields of a client.
func (s *Service) Update(ctx context.Context, id string, in Input) (Summary, error) {
	if s == nil || s.Store == nil {
		return Summary{}, errors.New("client service not configured")
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	if in.Status == "" {
		in.Status = c.Status
	}
	if err := apply(&c, in); err != nil {
		return Summary{}, err
	}
	c.UpdatedAt = s.now()
	if err := s.Store.Update(ctx, c); err != nil {
		return Summary{}, fmt.Errorf("update client: %w", err)
	}
	s.emit(ctx, events.TopicClientUpdated, c)
	return s.summarize(ctx, c)
}

// Get returns a client with its invoice totals.
func (s *Service) Get(ctx context.Context, id string) (Summary, error) {
	if s == nil || s.Store == nil {
		return Summary{}, errors.New("client service not configured")
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, c)
}

// List searches clients by name or email.
func (s *Service) List(ctx context.Context, query string) (ListResult, error) {
	if s == nil || s.Store == nil {
		return ListResult{}, errors.New("client service not configured")
	}
	clients, err := s.Store.List(ctx, strings.TrimSpace(query))
	if err != nil {
		return ListResult{}, fmt.Errorf("list clients: %w", err)
	}
	result := ListResult{Items: make([]Summary, 0, len(clients)), Total: len(clients)}
	for _, c := range clients {
		if c.Status == StatusActive {
			result.Active++
		}
		summary, err := s.summarize(ctx, c)
		if err != nil {
			return ListResult{}, err
		}
		result.Items = append(result.Items, summary)
	}
	return result, nil
}

// Delete removes a client. Existing invoices keep the client name snapshot.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return errors.New("client service not configured")
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.TopicClientDeleted, c)
	return nil
}

// ClientName resolves the name used as the invoice snapshot.
func (s *Service) ClientName(ctx context.Context, id string) (string, bool, error) {
	c, err := s.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return c.Name, true, nil
}

func (s *Service) summarize(ctx context.Context, c Client) (Summary, error) {
	summary := Summary{Client: c, TotalAmount: decimal.Zero}
	if s.Invoices == nil {
		return summary, nil
	}
	stats, err := s.Invoices.StatsByClient(ctx, c.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("client invoice stats: %w", err)
	}
	summary.TotalInvoices = stats.TotalInvoices
	summary.TotalAmount = stats.TotalAmount
	return summary, nil
}

func apply(c *Client, in Input) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	status := in.Status
	switch status {
	case "":
		status = StatusActive
	case StatusActive, StatusInactive:
	default:
		return fmt.Errorf("unknown status %q: %w", status, ErrInvalidInput)
	}
	c.Name = name
	c.Email = strings.ToLower(strings.TrimSpace(in.Email))
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
	c.Status = status
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, c Client) {
	payload := map[string]any{"name": c.Name, "status": c.Status}
	if _, err := s.Events.Emit(ctx, topic, c.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("client_id", c.ID).Msg("emit client event")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
