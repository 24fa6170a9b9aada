package redisserver

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPruneSize is the table size above which idle limiters are dropped.
const limiterPruneSize = 4096

// rateLimiter is a per-IP token bucket.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newRateLimiter(requestsPerSecond, burst int) *rateLimiter {
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// allow checks if a request from the given IP should be allowed.
func (rl *rateLimiter) allow(ip string) bool {
	if rl == nil {
		return true
	}

	rl.mu.Lock()
	l, ok := rl.limiters[ip]
	if !ok {
		if len(rl.limiters) >= limiterPruneSize {
			rl.prune()
		}
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[ip] = l
	}
	rl.mu.Unlock()

	return l.Allow()
}

// prune drops limiters whose bucket has refilled; a fresh limiter would
// behave the same. Caller holds mu.
func (rl *rateLimiter) prune() {
	for ip, l := range rl.limiters {
		if l.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
