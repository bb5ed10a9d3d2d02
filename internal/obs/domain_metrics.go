package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesCreatedTotal counts persisted invoices by currency.
	InvoicesCreatedTotal *prometheus.CounterVec
	// InvoiceGrandTotal observes invoice grand totals by currency.
	InvoiceGrandTotal *prometheus.HistogramVec
	// InvoicePaymentsTotal counts recorded payments by resulting invoice status.
	InvoicePaymentsTotal *prometheus.CounterVec
	// DashboardCacheTotal counts dashboard cache lookups by result (hit, miss, error).
	DashboardCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesCreatedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Count of invoices created.",
		}, []string{"currency"}))
		InvoiceGrandTotal = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_grand_total",
			Help:      "Distribution of invoice grand totals in major currency units.",
			Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		}, []string{"currency"}))
		InvoicePaymentsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_payments_total",
			Help:      "Count of recorded invoice payments by resulting status.",
		}, []string{"status"}))
		DashboardCacheTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_total",
			Help:      "Dashboard cache lookups by result.",
		}, []string{"result"}))
	})
}

// ObserveInvoiceCreated records creation metrics when domain metrics are registered.
func ObserveInvoiceCreated(currency string, grandTotal float64) {
	if InvoicesCreatedTotal != nil {
		InvoicesCreatedTotal.WithLabelValues(currency).Inc()
	}
	if InvoiceGrandTotal != nil {
		InvoiceGrandTotal.WithLabelValues(currency).Observe(grandTotal)
	}
}

// ObservePayment records a payment outcome when domain metrics are registered.
func ObservePayment(status string) {
	if InvoicePaymentsTotal != nil {
		InvoicePaymentsTotal.WithLabelValues(status).Inc()
	}
}

// ObserveDashboardCache records a dashboard cache lookup when domain metrics are registered.
func ObserveDashboardCache(result string) {
	if DashboardCacheTotal != nil {
		DashboardCacheTotal.WithLabelValues(result).Inc()
	}
}
