package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puttlab/backend/pkg/response"
	"golang.org/x/time/rate"
)

// LimiterStore hands out the token bucket for a client key. Implementations
// decide where bucket state lives.
type LimiterStore interface {
	Limiter(key string) *rate.Limiter
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiterStore keeps one bucket per key in process memory.
type MemoryLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
}

// NewMemoryLimiterStore creates a store of rps/burst buckets.
// Entries idle for longer than idleTTL are dropped by Janitor.
func NewMemoryLimiterStore(rps float64, burst int, idleTTL time.Duration) *MemoryLimiterStore {
	return &MemoryLimiterStore{
		limiters: make(map[string]*entry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
	}
}

func (s *MemoryLimiterStore) Limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.limiters[key]
	if !exists {
		v = &entry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Sweep removes entries not seen since before cutoff and returns how many.
func (s *MemoryLimiterStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, v := range s.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryLimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// Janitor sweeps idle entries every interval until ctx is done.
func (s *MemoryLimiterStore) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now.Add(-s.idleTTL))
		}
	}
}

// RateLimit enforces a per-client-IP request rate.
func RateLimit(store LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.Limiter(c.ClientIP()).Allow() {
			response.Abort(c, response.NewTooManyRequests())
			return
		}
		c.Next()
	}
}
