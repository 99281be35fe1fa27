package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// idleBucketTTL is how long an untouched client bucket is kept.
const idleBucketTTL = time.Hour

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimiter allows each client a fixed number of requests per window.
type RateLimiter struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	clients  map[string]*clientBucket
	now      func() time.Time

	lastSweep time.Time
}

// NewRateLimiter allows capacity requests per client in every window.
func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		capacity: capacity,
		window:   window,
		clients:  make(map[string]*clientBucket),
		now:      time.Now,
	}
}

// Allow spends one of client's tokens, refilling the bucket once its window
// has passed. At most once per idleBucketTTL, idle buckets are dropped on the
// way.
func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= idleBucketTTL {
		r.sweep(now)
	}

	bucket, ok := r.clients[client]
	if !ok || now.Sub(bucket.lastRefill) >= r.window {
		r.clients[client] = &clientBucket{tokens: r.capacity - 1, lastRefill: now}
		return r.capacity > 0
	}
	if bucket.tokens <= 0 {
		return false
	}
	bucket.tokens--
	return true
}

func (r *RateLimiter) sweep(now time.Time) {
	for id, bucket := range r.clients {
		if now.Sub(bucket.lastRefill) > idleBucketTTL {
			delete(r.clients, id)
		}
	}
	r.lastSweep = now
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
