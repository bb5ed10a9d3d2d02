package common

import (
	"context"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const maxIdempotencyKeyLen = 255

// Idem rejects a repeated Idempotency-Key on write endpoints. Keys live in redis for TTL;
// without redis the middleware passes requests through.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(r *http.Request, key string) string {
	return "idem:" + Sha256Hex(r.Method+" "+r.URL.Path+" "+key)
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (s *statusCapture) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusCapture) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

// Middleware claims the key before the handler runs. A failed response (4xx/5xx)
// releases the key so the client can retry with the same one.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(header) > maxIdempotencyKeyLen {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Idempotency-Key too long", map[string]any{"max_length": maxIdempotencyKeyLen})
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		key := hashKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}

		rec := &statusCapture{ResponseWriter: w}
		defer func() {
			if rec.status >= http.StatusBadRequest {
				_ = i.R.Del(context.WithoutCancel(r.Context()), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
