package rate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/redis"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestLimiterBlocksAboveMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 2)

	ctx := context.Background()
	source := "203.0.113.7"

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.AllowWebhook(ctx, source)
		if err != nil {
			t.Fatalf("allow webhook #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowWebhook(ctx, source)
	if err != nil {
		t.Fatalf("allow webhook #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third delivery in window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}
}

func TestLimiterScopesWindowPerSource(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 1)

	ctx := context.Background()

	if _, allowed, err := limiter.AllowWebhook(ctx, "198.51.100.1"); err != nil || !allowed {
		t.Fatalf("first source should be allowed: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowWebhook(ctx, "198.51.100.2"); err != nil || !allowed {
		t.Fatalf("second source should have its own window: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowWebhook(ctx, "198.51.100.1"); err != nil || allowed {
		t.Fatalf("first source should now be blocked: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterDisabledWhenNoBudget(t *testing.T) {
	limiter := NewLimiter(nil, 0)

	if _, allowed, err := limiter.AllowWebhook(context.Background(), "anything"); err != nil || !allowed {
		t.Fatalf("zero budget must disable limiting: allowed=%v err=%v", allowed, err)
	}
}
