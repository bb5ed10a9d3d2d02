package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/client"
	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/company"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/dashboard"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/health"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/ratelimit"
	"github.com/noah-isme/backend-invoice/internal/security"
)

// dependencies carries everything newRouter wires. Redis and Metrics are optional.
type dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Redis        *redis.Client
	Invoices     invoice.Store
	Clients      client.Store
	Company      company.Store
	Events       events.EventStore
	Probes       map[string]health.Probe
	ProbeTimeout time.Duration
	Metrics      *obs.HTTPMetrics
	Gatherer     prometheus.Gatherer
	Now          func() time.Time
}

func newRouter(d dependencies) http.Handler {
	cfg := d.Config
	logger := d.Logger
	defCurrency := defaultCurrency(cfg)

	bus := &events.Bus{
		Store:     d.Events,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
		Now:       d.Now,
	}

	var locks lock.Locker = lock.NewLocal()
	if d.Redis != nil {
		locks = lock.Redis{R: d.Redis, Prefix: "invoice-lock"}
	}

	invoiceSvc := &invoice.Service{
		Store:           d.Invoices,
		Events:          bus,
		Logger:          logger,
		DefaultCurrency: defCurrency,
		Locks:           locks,
		Now:             d.Now,
	}
	clientSvc := &client.Service{
		Store:    d.Clients,
		Invoices: invoiceSvc,
		Events:   bus,
		Logger:   logger,
		Now:      d.Now,
	}
	invoiceSvc.Clients = clientSvc
	companySvc := &company.Service{Store: d.Company, Events: bus, Logger: logger, Now: d.Now}
	dashSvc := &dashboard.Service{
		Invoices:    invoiceSvc,
		R:           d.Redis,
		TTL:         cfg.DashboardCacheTTL,
		RecentLimit: cfg.DashboardRecentLimit,
		Now:         d.Now,
	}
	bus.Notifiers = append(bus.Notifiers,
		invoice.ClientDetacher{Service: invoiceSvc},
		dashboard.CacheInvalidator{Service: dashSvc},
	)

	invoiceHandler := &invoice.Handler{Service: invoiceSvc, DefaultLimit: cfg.ListDefaultLimit, MaxLimit: cfg.ListMaxLimit}
	clientHandler := &client.Handler{Service: clientSvc}
	companyHandler := &company.Handler{Service: companySvc}
	dashHandler := &dashboard.Handler{Svc: dashSvc}
	currencyHandler := currency.Handler{Default: defCurrency}
	healthHandler := health.Handler{Probes: d.Probes, Timeout: d.ProbeTimeout}

	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	var limiter ratelimit.Limiter
	if d.Redis != nil {
		limiter = ratelimit.RedisLimiter{Client: d.Redis, Prefix: "rl"}
	} else {
		limiter = ratelimit.NewMemoryLimiter("rl")
	}
	rateLimit := ratelimit.Handler{
		Limiter: limiter,
		Config:  ratelimit.Config{Key: ratelimit.KeyByClientIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeadersEnabled, EnableHSTS: cfg.AppEnv == "production"}.Middleware)

	if d.Metrics != nil {
		r.Handle("/metrics", obs.MetricsHandler(d.Gatherer))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rateLimit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		v.Get("/currencies", currencyHandler.List)
		v.Get("/dashboard", dashHandler.Overview)

		v.Route("/invoices", func(inv chi.Router) {
			inv.Get("/", invoiceHandler.List)
			inv.Post("/preview", invoiceHandler.Preview)
			inv.With(idem.Middleware).Post("/", invoiceHandler.Create)
			inv.Route("/{id}", func(one chi.Router) {
				one.Get("/", invoiceHandler.Get)
				one.Put("/", invoiceHandler.Update)
				one.Delete("/", invoiceHandler.Delete)
				one.With(idem.Middleware).Post("/payments", invoiceHandler.RecordPayment)
			})
		})

		v.Route("/clients", func(c chi.Router) {
			c.Get("/", clientHandler.List)
			c.Post("/", clientHandler.Create)
			c.Get("/{id}", clientHandler.Get)
			c.Put("/{id}", clientHandler.Update)
			c.Delete("/{id}", clientHandler.Delete)
		})

		v.Route("/settings/company", func(s chi.Router) {
			s.Get("/", companyHandler.Get)
			s.Put("/", companyHandler.Save)
			s.Delete("/", companyHandler.Reset)
		})
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
