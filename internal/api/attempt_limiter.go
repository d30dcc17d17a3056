package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const attemptSweepEvery = 256

// attemptLimiter blocks a key once it has limit failures inside the trailing window.
type attemptLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
	writes   int
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		limit:    limit,
		window:   window,
		failures: make(map[string][]time.Time),
	}
}

func (limiter *attemptLimiter) blocked(key string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	return len(limiter.recent(key, now)) >= limiter.limit
}

func (limiter *attemptLimiter) fail(key string, now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	limiter.failures[key] = append(limiter.recent(key, now), now)

	limiter.writes++
	if limiter.writes%attemptSweepEvery == 0 {
		for other := range limiter.failures {
			limiter.recent(other, now)
		}
	}
}

func (limiter *attemptLimiter) clear(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	delete(limiter.failures, key)
}

// recent drops failures older than the window and forgets keys left empty. Callers hold mu.
func (limiter *attemptLimiter) recent(key string, now time.Time) []time.Time {
	cutoff := now.Add(-limiter.window)
	stamps := limiter.failures[key]

	first := 0
	for first < len(stamps) && !stamps[first].After(cutoff) {
		first++
	}
	if first == len(stamps) {
		delete(limiter.failures, key)
		return nil
	}
	if first > 0 {
		stamps = append(stamps[:0], stamps[first:]...)
		limiter.failures[key] = stamps
	}
	return stamps
}

func loginLimiterKey(c *fiber.Ctx, email string) string {
	client := strings.TrimSpace(c.IP())
	if client == "" {
		client = "unknown"
	}
	return client + "|" + strings.ToLower(strings.TrimSpace(email))
}
