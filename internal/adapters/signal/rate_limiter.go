package signal

import (
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"golang.org/x/time/rate"
)

// PublishRateLimiter keeps one token bucket per session for publishes sent
// over the channel. A non-positive limit disables it.
type PublishRateLimiter struct {
	mu       sync.Mutex
	limiters map[core.SessionID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewPublishRateLimiter(limit rate.Limit, burst int) *PublishRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &PublishRateLimiter{
		limiters: make(map[core.SessionID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *PublishRateLimiter) Allow(sid core.SessionID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	l, ok := rl.limiters[sid]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[sid] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// Forget drops the bucket of a closed session.
func (rl *PublishRateLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	delete(rl.limiters, sid)
	rl.mu.Unlock()
}

func (rl *PublishRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
