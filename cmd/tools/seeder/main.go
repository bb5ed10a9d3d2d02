package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/client"
	"github.com/noah-isme/backend-invoice/internal/company"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

type demoClient struct {
	Name, Email, Phone, Address string
	Status                      client.Status
}

var demoClients = []demoClient{
	{"Acme Corporation", "contact@acme.com", "+1-555-0101", "123 Business St, City, State 12345", client.StatusActive},
	{"Tech Solutions Ltd", "info@techsol.com", "+1-555-0102", "456 Tech Ave, City, State 12346", client.StatusActive},
	{"Global Industries", "hello@global.com", "+1-555-0103", "789 Corporate Blvd, City, State 12347", client.StatusActive},
	{"Startup Innovations", "team@startup.com", "+1-555-0104", "321 Innovation Dr, City, State 12348", client.StatusInactive},
}

type demoInvoice struct {
	Number, ClientName, IssueDate, DueDate string
	Currency                              currency.Code
	Title                                 string
	Amount, Paid                          int64
}

var demoInvoices = []demoInvoice{
	{"INV-001", "Acme Corporation", "2024-01-10", "2024-01-25", currency.USD, "Website redesign", 5000, 5000},
	{"INV-002", "Tech Solutions Ltd", "2024-01-15", "2024-01-30", currency.USD, "API integration", 3500, 0},
	{"INV-003", "Global Industries", "2024-01-20", "2024-02-05", currency.USD, "Data migration", 7200, 3600},
	{"INV-004", "Startup Innovations", "2024-01-25", "2024-02-10", currency.USD, "MVP prototype", 2800, 0},
	{"INV-005", "Creative Agency", "2024-01-28", "2024-02-12", currency.PKR, "Brand identity package", 150000, 150000},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "info"))
	if !cfg.UsePostgres() {
		logger.Fatal().Msg("seeder requires STORAGE_DRIVER=postgres and DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	s := newSeeder(invoice.PGStore{DB: pool}, client.PGStore{DB: pool}, company.PGStore{DB: pool}, logger)
	if err := s.run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}

type seeder struct {
	invoices *invoice.Service
	clients  *client.Service
	company  *company.Service
	logger   zerolog.Logger
}

func newSeeder(invoices invoice.Store, clients client.Store, settings company.Store, logger zerolog.Logger) *seeder {
	invoiceSvc := &invoice.Service{Store: invoices, Logger: logger, DefaultCurrency: currency.USD}
	clientSvc := &client.Service{Store: clients, Invoices: invoiceSvc, Logger: logger}
	invoiceSvc.Clients = clientSvc
	return &seeder{
		invoices: invoiceSvc,
		clients:  clientSvc,
		company:  &company.Service{Store: settings, Logger: logger},
		logger:   logger,
	}
}

func (s *seeder) run(ctx context.Context) error {
	if err := s.seedCompany(ctx); err != nil {
		return err
	}
	ids, err := s.seedClients(ctx)
	if err != nil {
		return err
	}
	return s.seedInvoices(ctx, ids)
}

func (s *seeder) seedCompany(ctx context.Context) error {
	current, err := s.company.Get(ctx)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}
	if current.Name != "" {
		s.logger.Info().Str("name", current.Name).Msg("company settings present, skipping")
		return nil
	}
	_, err = s.company.Save(ctx, company.Settings{
		Name:            "Demo Studio",
		Address:         "1 Market Street, City",
		Email:           "billing@demo.studio",
		BankAccountInfo: "Account 0000-0000-0000",
	})
	return err
}

func (s *seeder) seedClients(ctx context.Context) (map[string]string, error) {
	existing, err := s.clients.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	ids := make(map[string]string, len(existing.Items))
	for _, c := range existing.Items {
		ids[strings.ToLower(c.Name)] = c.ID
	}
	for _, dc := range demoClients {
		if _, ok := ids[strings.ToLower(dc.Name)]; ok {
			continue
		}
		created, err := s.clients.Create(ctx, client.Input{
			Name: dc.Name, Email: dc.Email, Phone: dc.Phone, Address: dc.Address, Status: dc.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("create client %s: %w", dc.Name, err)
		}
		ids[strings.ToLower(dc.Name)] = created.ID
		s.logger.Info().Str("client", dc.Name).Msg("client seeded")
	}
	return ids, nil
}

func (s *seeder) seedInvoices(ctx context.Context, clientIDs map[string]string) error {
	for _, di := range demoInvoices {
		in := invoice.Input{
			Draft: invoice.Draft{
				Items: []invoice.ItemInput{{
					Title:         di.Title,
					UnitPrice:     decimal.NewFromInt(di.Amount),
					Quantity:      1,
					DiscountKind:  pricing.DiscountNone,
					DiscountValue: decimal.Zero,
				}},
				TaxRate:           decimal.Zero,
				DepositPercentage: decimal.Zero,
			},
			Number:     di.Number,
			ClientID:   clientIDs[strings.ToLower(di.ClientName)],
			ClientName: di.ClientName,
			IssueDate:  di.IssueDate,
			DueDate:    di.DueDate,
			Currency:   di.Currency,
		}
		inv, err := s.invoices.Create(ctx, in)
		if errors.Is(err, invoice.ErrConflict) {
			s.logger.Info().Str("number", di.Number).Msg("invoice present, skipping")
			continue
		}
		if err != nil {
			return fmt.Errorf("create invoice %s: %w", di.Number, err)
		}
		if di.Paid > 0 {
			if _, err := s.invoices.RecordPayment(ctx, inv.ID, decimal.NewFromInt(di.Paid)); err != nil {
				return fmt.Errorf("record payment %s: %w", di.Number, err)
			}
		}
		s.logger.Info().Str("number", di.Number).Str("client", di.ClientName).Msg("invoice seeded")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
