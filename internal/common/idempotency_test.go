package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdemRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	calls := 0
	h := Idem{R: rc}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
		req.Header.Set("Idempotency-Key", key)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusCreated, send("abc"))
	require.Equal(t, http.StatusConflict, send("abc"))
	require.Equal(t, http.StatusCreated, send("other"))
	require.Equal(t, 2, calls)
	require.Equal(t, http.StatusBadRequest, send(strings.Repeat("k", 300)))
}

func TestIdemReleasesKeyOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	status := http.StatusBadRequest
	h := Idem{R: rc}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/1/payments", nil)
		r.Header.Set("Idempotency-Key", "pay-1")
		return r
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req())
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, mr.Keys())

	status = http.StatusOK
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req())
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, mr.Keys(), 1)
}

func TestIdemWithoutRedisPassesThrough(t *testing.T) {
	h := Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Idempotency-Key", "x")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestClientIPAndWindow(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4411"
	require.Equal(t, "10.0.0.9", ClientIP(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(req))

	start, end := Window(45, 3, 20)
	require.Equal(t, 40, start)
	require.Equal(t, 45, end)
	start, end = Window(5, 9, 20)
	require.Equal(t, 5, start)
	require.Equal(t, 5, end)
}
