package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterSeparatesKeys(t *testing.T) {
	limiter := NewMemoryLimiter("test")
	ctx := context.Background()

	allowed, remaining, reset, err := limiter.Allow(ctx, "a", time.Minute, 1)
	if err != nil || !allowed {
		t.Fatalf("expected first event allowed, got allowed=%v err=%v", allowed, err)
	}
	if remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining)
	}
	if !reset.After(time.Now()) {
		t.Fatalf("expected reset in the future, got %v", reset)
	}

	if allowed, _, _, _ := limiter.Allow(ctx, "a", time.Minute, 1); allowed {
		t.Fatal("expected second event for the same key to be rejected")
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "b", time.Minute, 1); !allowed {
		t.Fatal("expected other key to be allowed")
	}
}

func TestMemoryLimiterDisabledWhenMaxZero(t *testing.T) {
	limiter := NewMemoryLimiter("test")
	for i := 0; i < 5; i++ {
		if allowed, _, _, _ := limiter.Allow(context.Background(), "k", time.Minute, 0); !allowed {
			t.Fatal("expected limiter to be disabled")
		}
	}
}
