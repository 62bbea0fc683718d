// Package ratelimit keeps one token bucket per project.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages rate limits for multiple projects
type Limiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	perHour int
	now     func() time.Time
}

// NewLimiter allows requestsPerHour per project on average with bursts of
// up to burst requests.
func NewLimiter(requestsPerHour int, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(requestsPerHour) / 3600.0),
		burst:   burst,
		perHour: requestsPerHour,
		now:     time.Now,
	}
}

// PerHour returns the configured hourly allowance.
func (l *Limiter) PerHour() int {
	return l.perHour
}

func (l *Limiter) get(projectID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[projectID]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[projectID] = b
	}
	b.lastSeen = l.now()

	return b.limiter
}

// Allow checks if a request is allowed for the given project
func (l *Limiter) Allow(projectID string) bool {
	return l.get(projectID).AllowN(l.now(), 1)
}

// Remaining returns the whole tokens left for a project.
func (l *Limiter) Remaining(projectID string) int {
	tokens := l.get(projectID).TokensAt(l.now())
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

// RetryAfter returns how long until the project gets its next token.
func (l *Limiter) RetryAfter(projectID string) time.Duration {
	lim := l.get(projectID)
	now := l.now()
	r := lim.ReserveN(now, 1)
	defer r.CancelAt(now)
	return r.DelayFrom(now)
}

// Prune drops buckets idle for longer than idle. A pruned project starts
// again with a full bucket.
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	n := 0
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
			n++
		}
	}
	return n
}
