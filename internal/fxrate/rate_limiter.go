package fxrate

import (
	"sync"
	"time"
)

// RateLimiter spaces outgoing requests at a fixed interval.
type RateLimiter struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
}

func NewRateLimiter(perSecond int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &RateLimiter{interval: time.Second / time.Duration(perSecond)}
}

func (r *RateLimiter) WaitTurn() {
	r.mu.Lock()
	now := time.Now()
	at := now
	if r.next.After(now) {
		at = r.next
	}
	r.next = at.Add(r.interval)
	r.mu.Unlock()

	if wait := time.Until(at); wait > 0 {
		time.Sleep(wait)
	}
}
