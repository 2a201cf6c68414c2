package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Whitelist admits only the listed user ids. An empty list admits nobody.
type Whitelist struct {
	allowed map[int64]struct{}
}

func NewWhitelist(ids []int64) *Whitelist {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return &Whitelist{allowed: allowed}
}

func (w *Whitelist) Allowed(userID int64) bool {
	if w == nil {
		return false
	}
	_, ok := w.allowed[userID]
	return ok
}

type userVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserLimiter throttles intake per user. A zero rate disables it.
type UserLimiter struct {
	mu       sync.Mutex
	visitors map[int64]*userVisitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func NewUserLimiter(perMinute, burst int) *UserLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &UserLimiter{
		visitors: make(map[int64]*userVisitor),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

func (l *UserLimiter) Allow(userID int64) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	visitor, ok := l.visitors[userID]
	if !ok {
		visitor = &userVisitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[userID] = visitor
	}
	visitor.lastSeen = now
	l.cleanup(now)
	return visitor.limiter.AllowN(now, 1)
}

func (l *UserLimiter) cleanup(now time.Time) {
	for id, visitor := range l.visitors {
		if now.Sub(visitor.lastSeen) > l.ttl {
			delete(l.visitors, id)
		}
	}
}

const RateLimitedText = "Слишком много сообщений. Подождите немного."
