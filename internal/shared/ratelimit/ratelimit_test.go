package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRefillsOverTime(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemory(func() time.Time { return now })
	rule := Rule{Rate: 1, Burst: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "k", rule); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, retry := l.Allow(ctx, "k", rule)
	if ok {
		t.Fatalf("third request should be limited")
	}
	if retry != time.Second {
		t.Fatalf("expected 1s retry, got %s", retry)
	}

	now = now.Add(time.Second)
	if ok, _ := l.Allow(ctx, "k", rule); !ok {
		t.Fatalf("request after refill should pass")
	}
	if ok, _ := l.Allow(ctx, "other", rule); !ok {
		t.Fatalf("keys are independent")
	}
}

func TestPerMinuteWindow(t *testing.T) {
	rule := PerMinute(120)
	if rule.Burst != 120 {
		t.Fatalf("expected burst 120, got %d", rule.Burst)
	}
	if got := rule.Window(); got != time.Minute {
		t.Fatalf("expected 1m window, got %s", got)
	}
}

func TestRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis("not a url"); err == nil {
		t.Fatalf("expected parse error")
	}
}
