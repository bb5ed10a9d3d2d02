package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiterSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	limiter := RedisLimiter{Client: client, Prefix: "rl", Now: func() time.Time { return clock }}
	ctx := context.Background()
	window := 10 * time.Second

	for i := 0; i < 2; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, "ip:198.51.100.4", window, 2)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed || remaining != 1-i {
			t.Fatalf("request %d: allowed=%v remaining=%d", i, allowed, remaining)
		}
		if !reset.Equal(time.Date(2024, 1, 15, 12, 0, 10, 0, time.UTC)) {
			t.Fatalf("unexpected reset %v", reset)
		}
		clock = clock.Add(4 * time.Second)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "ip:198.51.100.4", window, 2)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed || remaining != 0 {
		t.Fatalf("expected third request inside the window to be rejected")
	}
	if n, _ := client.ZCard(ctx, "rl:ip:198.51.100.4").Result(); n != 2 {
		t.Fatalf("rejected request must not be recorded, set has %d members", n)
	}

	// the first request (t=0) leaves the window at t=10
	clock = clock.Add(3 * time.Second)
	allowed, _, _, err = limiter.Allow(ctx, "ip:198.51.100.4", window, 2)
	if err != nil {
		t.Fatalf("allow after slide: %v", err)
	}
	if !allowed {
		t.Fatal("expected request to be allowed once the oldest entry slid out")
	}
}

func TestRedisLimiterWithoutClientAllows(t *testing.T) {
	allowed, remaining, _, err := RedisLimiter{}.Allow(context.Background(), "k", time.Second, 5)
	if err != nil || !allowed || remaining != 5 {
		t.Fatalf("expected pass-through, got allowed=%v remaining=%d err=%v", allowed, remaining, err)
	}
}
