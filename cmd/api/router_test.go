package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/client"
	"github.com/noah-isme/backend-invoice/internal/company"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/health"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

func testDeps(t *testing.T, rc *redis.Client) (dependencies, *events.MemoryStore) {
	t.Helper()
	cfg, err := config.LoadForTests(map[string]string{
		"STORAGE_DRIVER":   "memory",
		"DEFAULT_CURRENCY": "PKR",
		"RATE_LIMIT_MAX":   "1000",
	})
	require.NoError(t, err)
	log := events.NewMemoryStore(50)
	reg := prometheus.NewRegistry()
	return dependencies{
		Config:   cfg,
		Redis:    rc,
		Invoices: invoice.NewMemoryStore(),
		Clients:  client.NewMemoryStore(),
		Company:  company.NewMemoryStore(),
		Events:   log,
		Probes:   map[string]health.Probe{},
		Metrics:  obs.NewHTTPMetrics("invoice_router_test", nil, reg),
		Gatherer: reg,
		Now:      func() time.Time { return time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC) },
	}, log
}

func call(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterInvoiceFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	deps, log := testDeps(t, rc)
	h := newRouter(deps)

	rr := call(t, h, http.MethodPost, "/api/v1/clients", `{"name":"Acme Corporation","email":"contact@acme.com"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	clientID := created.Data.ID

	rr = call(t, h, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, mr.Exists("dash:overview:all"))

	body := `{"clientId":"` + clientID + `","issueDate":"2024-01-15","dueDate":"2024-02-15",
		"items":[{"title":"Website Development","unitPrice":5000,"quantity":1}]}`
	rr = call(t, h, http.MethodPost, "/api/v1/invoices", body, "Idempotency-Key", "create-1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var inv struct {
		Data struct {
			ID         string  `json:"id"`
			ClientName string  `json:"clientName"`
			Currency   string  `json:"currency"`
			GrandTotal float64 `json:"grandTotal"`
			Status     string  `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))
	require.Equal(t, "Acme Corporation", inv.Data.ClientName)
	require.Equal(t, "PKR", inv.Data.Currency)
	require.Equal(t, 5000.0, inv.Data.GrandTotal)
	require.Equal(t, "unpaid", inv.Data.Status)
	require.False(t, mr.Exists("dash:overview:all"), "invoice events should clear the dashboard cache")

	rr = call(t, h, http.MethodPost, "/api/v1/invoices", body, "Idempotency-Key", "create-1")
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = call(t, h, http.MethodPost, "/api/v1/invoices/"+inv.Data.ID+"/payments", `{"amount":2000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"status":"partial"`)

	rr = call(t, h, http.MethodGet, "/api/v1/dashboard?status=partial", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var dash struct {
		Data struct {
			TotalInvoices  int     `json:"totalInvoices"`
			TotalSales     float64 `json:"totalSales"`
			TotalPaid      float64 `json:"totalPaid"`
			TotalRemaining float64 `json:"totalRemaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	require.Equal(t, 1, dash.Data.TotalInvoices)
	require.Equal(t, 5000.0, dash.Data.TotalSales)
	require.Equal(t, 2000.0, dash.Data.TotalPaid)
	require.Equal(t, 3000.0, dash.Data.TotalRemaining)

	rr = call(t, h, http.MethodGet, "/api/v1/clients/"+clientID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"totalInvoices":1`)

	topics := map[string]bool{}
	for _, ev := range log.Recent(10) {
		topics[ev.Topic] = true
	}
	require.True(t, topics[events.TopicClientCreated])
	require.True(t, topics[events.TopicInvoiceCreated])
	require.True(t, topics[events.TopicInvoicePaymentRecorded])
}

func TestRouterDeletedClientLeavesInvoiceEditable(t *testing.T) {
	deps, _ := testDeps(t, nil)
	h := newRouter(deps)

	rr := call(t, h, http.MethodPost, "/api/v1/clients", `{"name":"Acme Corporation"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	body := `{"clientId":"` + created.Data.ID + `","items":[{"title":"Audit","unitPrice":1200,"quantity":1}]}`
	rr = call(t, h, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var inv struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))

	rr = call(t, h, http.MethodDelete, "/api/v1/clients/"+created.Data.ID, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = call(t, h, http.MethodGet, "/api/v1/invoices/"+inv.Data.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var fetched struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))
	require.NotContains(t, string(fetched.Data), `"clientId"`)
	require.Contains(t, string(fetched.Data), `"clientName":"Acme Corporation"`)

	rr = call(t, h, http.MethodPut, "/api/v1/invoices/"+inv.Data.ID, string(fetched.Data))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRouterAmbientEndpoints(t *testing.T) {
	deps, _ := testDeps(t, nil)
	h := newRouter(deps)

	rr := call(t, h, http.MethodGet, "/api/v1/currencies", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"default":"PKR"`)
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.NotEmpty(t, rr.Header().Get("X-RateLimit-Limit"))

	rr = call(t, h, http.MethodPut, "/api/v1/settings/company", `{"name":"Noah Studio","logo":"data:image/gif;base64,R0lGODlhAQABAAAAACw="}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = call(t, h, http.MethodGet, "/api/v1/settings/company", "")
	require.Contains(t, rr.Body.String(), "Noah Studio")

	rr = call(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `invoice_router_test_http_requests_total{method="GET",route="/api/v1/currencies"`)
}
