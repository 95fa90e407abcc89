// Package ratelimit hands out one token bucket per client so a single
// caller cannot monopolize the analysis pipeline.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a client's bucket survives without traffic.
const DefaultIdleTTL = 10 * time.Minute

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// Limiter keys buckets by client (an IP for HTTP, a fixed key for batch
// pacing). Buckets idle for longer than the TTL are evicted lazily, so the
// map stays bounded by recently active clients.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastPrune time.Time
	now       func() time.Time
}

// New allows rps requests per second per client with the given burst.
func New(rps float64, burst int) *Limiter {
	return NewWithIdleTTL(rps, burst, DefaultIdleTTL)
}

func NewWithIdleTTL(rps float64, burst int, idleTTL time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow reports whether key may start a request now.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

// Clients returns how many buckets are currently tracked.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if c, ok := l.clients[key]; ok {
		c.lastSeen = now
		return c.bucket
	}

	if l.idleTTL > 0 && now.Sub(l.lastPrune) >= l.idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= l.idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastPrune = now
	}

	c := &client{bucket: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.clients[key] = c
	return c.bucket
}
