package proxy

import (
	"sync"
	"time"
)

const rateWindow = 60 * time.Second

type clientWindow struct {
	start time.Time
	count int
}

// RateLimiter counts requests per client identity inside a fixed 60-second
// window; the window resets when the wall clock advances past it. The
// clock is injectable for deterministic testing.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	clients map[string]*clientWindow
	now     func() time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		limit:   requestsPerMinute,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// Allow records one request for client and reports whether it is within
// the window's budget.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[client]
	if !ok || now.Sub(w.start) >= rateWindow {
		l.clients[client] = &clientWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= l.limit
}
