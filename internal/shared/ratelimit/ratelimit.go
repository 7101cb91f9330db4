// Package ratelimit decides whether a principal may make another request.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Rule allows Burst requests at once, refilled at Rate per second.
type Rule struct {
	Rate  float64
	Burst int
}

// PerMinute returns a rule allowing n requests per minute.
func PerMinute(n int) Rule {
	return Rule{Rate: float64(n) / 60.0, Burst: n}
}

// Window is the period over which Burst requests are spread.
func (r Rule) Window() time.Duration {
	if r.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(r.Burst) / r.Rate * float64(time.Second))
}

// Limiter reports whether key may proceed and, if not, how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (bool, time.Duration)
}

// Memory is a per-process token bucket limiter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

func (l *Memory) Allow(_ context.Context, key string, rule Rule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens: float64(rule.Burst),
			last:   now,
		}
		l.buckets[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true, 0
	}
	needed := 1 - b.tokens
	waitSec := needed / rule.Rate
	if waitSec < 0 {
		waitSec = 0
	}
	return false, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
}
