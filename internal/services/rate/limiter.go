package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const webhookMinuteWindow = time.Minute

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter caps webhook deliveries per source over a fixed one-minute window.
type Limiter struct {
	store     WindowStore
	perMinute int
}

func NewLimiter(store WindowStore, perMinute int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}

	return &Limiter{
		store:     store,
		perMinute: perMinute,
	}
}

// AllowWebhook returns whether the source may deliver now; when blocked, the
// retry-after hint in seconds is positive.
func (l *Limiter) AllowWebhook(ctx context.Context, source string) (int64, bool, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return 0, false, fmt.Errorf("rate source is required")
	}
	if l.perMinute <= 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, webhookKey(source), webhookMinuteWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perMinute) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func webhookKey(source string) string {
	return "rate:webhook:min:" + source
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
