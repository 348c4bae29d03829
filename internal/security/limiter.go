package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-client token bucket. It satisfies echo's
// middleware.RateLimiterStore.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewLimiter allows cfg.Requests per cfg.Window with a burst of cfg.Requests.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:    cfg.Requests,
		now:      time.Now,
	}
}

func (l *Limiter) visitor(id string, now time.Time) *visitor {
	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	return v
}

// Allow consumes one token for identifier.
func (l *Limiter) Allow(identifier string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.visitor(identifier, now).limiter.AllowN(now, 1), nil
}

// Remaining reports the whole tokens identifier could spend right now.
func (l *Limiter) Remaining(identifier string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[identifier]
	if !ok {
		return l.burst
	}
	tokens := int(v.limiter.TokensAt(l.now()))
	if tokens < 0 {
		return 0
	}
	return tokens
}

// Limit returns the bucket size.
func (l *Limiter) Limit() int {
	return l.burst
}

// Trim forgets clients idle for longer than idle and returns how many were dropped.
func (l *Limiter) Trim(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for id, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, id)
			n++
		}
	}
	return n
}
