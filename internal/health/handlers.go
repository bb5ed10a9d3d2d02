package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-invoice/internal/common"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles the readiness flag. It is cleared when the server starts draining.
func SetReady(v bool) {
	ready.Store(v)
}

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

// PostgresProbe pings the pool.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

// RedisProbe pings the client.
func RedisProbe(client *redis.Client) Probe {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

// Handler exposes HTTP handlers for health endpoints. Only configured
// dependencies are probed, so an in-memory deployment is ready without any.
type Handler struct {
	Probes  map[string]Probe
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}

	names := make([]string, 0, len(h.Probes))
	for name := range h.Probes {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := h.Probes[name](ctx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}
