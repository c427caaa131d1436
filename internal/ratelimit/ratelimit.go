package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces scrape tasks so target sites see human-ish request
// spacing rather than a burst per job.
type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// SimpleRateLimiter enforces a jittered delay between actions. The jitter
// keeps the spacing from looking like a fixed-interval bot signature.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   true,
	}
}

// Wait blocks until enough time has passed since the previous action. The
// first call never waits.
func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	if !r.jitter || r.minDelay == r.maxDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

// Floor and ceiling for the adaptive window. Sites that block us get
// backed off hard, but never past two minutes per request.
const (
	adaptiveMinFloor = 1 * time.Second
	adaptiveMinCap   = 60 * time.Second
	adaptiveMaxCap   = 120 * time.Second
)

// AdaptiveRateLimiter widens the delay window when scrapes keep failing
// (captcha walls and navigation timeouts usually mean we are being
// throttled) and slowly narrows it again while scrapes succeed. The jobs
// worker feeds it one RecordSuccess or RecordError per scrape attempt.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	errorStreak    int
	successStreak  int
	errorThreshold int
	backoffFactor  float64
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: NewSimpleRateLimiter(minDelay, maxDelay),
		errorThreshold:    3,
		backoffFactor:     1.5,
	}
}

// RecordSuccess notes one successful scrape. A sustained run of successes
// shrinks the minimum delay, down to a one second floor.
func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successStreak++
	a.errorStreak = 0

	if a.successStreak > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < adaptiveMinFloor {
			newMin = adaptiveMinFloor
		}
		a.minDelay = newMin
		a.successStreak = 0
	}
}

// RecordError notes one failed scrape. Hitting the error threshold widens
// the whole delay window by the backoff factor.
func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorStreak++
	a.successStreak = 0

	if a.errorStreak >= a.errorThreshold {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)

		if newMin > adaptiveMinCap {
			newMin = adaptiveMinCap
		}
		if newMax > adaptiveMaxCap {
			newMax = adaptiveMaxCap
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorStreak = 0
	}
}
