package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultGenerateRatePerMinute = 3

// generateLimiter is a token bucket per user for the model-backed generate endpoint.
type generateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[uint]*rate.Limiter
}

func newGenerateLimiter(perMinute int) *generateLimiter {
	if perMinute <= 0 {
		perMinute = defaultGenerateRatePerMinute
	}
	return &generateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[uint]*rate.Limiter),
	}
}

func (limiter *generateLimiter) allow(userID uint, now time.Time) bool {
	limiter.mu.Lock()
	bucket, ok := limiter.limiters[userID]
	if !ok {
		bucket = rate.NewLimiter(limiter.limit, limiter.burst)
		limiter.limiters[userID] = bucket
	}
	limiter.mu.Unlock()

	return bucket.AllowN(now, 1)
}
