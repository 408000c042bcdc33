package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed is a token-bucket limiter per key (client IP, email address).
// Idle keys are swept lazily during Allow.
type Keyed struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	r         rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// New creates a limiter allowing r events/second per key, bursting up to burst.
func New(r rate.Limit, burst int) *Keyed {
	return &Keyed{
		limiters: make(map[string]*entry),
		r:        r,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether one event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	if now.Sub(k.lastSweep) > sweepEvery {
		for key, e := range k.limiters {
			if now.Sub(e.lastSeen) > staleAfter {
				delete(k.limiters, key)
			}
		}
		k.lastSweep = now
	}
	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.r, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}
