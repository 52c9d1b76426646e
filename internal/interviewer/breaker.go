package interviewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// Breaker defaults.
const (
	DefaultBreakerThreshold = 3
	DefaultBreakerCooldown  = time.Minute
)

// Breaker wraps a Generator and stops calling it after Threshold
// consecutive Generate failures. While open, Generate fails immediately
// with ErrGeneratorUnavailable so the controller's fallback answers
// without waiting for the timeout. After Cooldown a single caller gets a
// trial call while the others keep failing fast; a success closes the
// breaker again and a failure restarts the cooldown.
type Breaker struct {
	next interview.Generator

	mu                  sync.Mutex
	consecutiveFailures int
	threshold           int
	cooldown            time.Duration
	openedAt            time.Time
	trial               bool
	now                 func() time.Time
}

// NewBreaker wraps next. Non-positive threshold or cooldown select the
// defaults.
func NewBreaker(next interview.Generator, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &Breaker{next: next, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Open reports whether calls are currently short-circuited.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openLocked()
}

func (b *Breaker) openLocked() bool {
	if b.consecutiveFailures < b.threshold {
		return false
	}
	return b.trial || b.now().Sub(b.openedAt) < b.cooldown
}

// acquire reports whether the caller may reach the wrapped generator. Past
// the cooldown the first caller claims the trial slot.
func (b *Breaker) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openLocked() {
		return false
	}
	if b.consecutiveFailures >= b.threshold {
		b.trial = true
	}
	return true
}

// ConsecutiveFailures returns the current failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold {
		b.openedAt = b.now()
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	b.consecutiveFailures = 0
}

// Generate implements interview.Generator.
func (b *Breaker) Generate(ctx context.Context, req interview.Request) (string, error) {
	if !b.acquire() {
		return "", fmt.Errorf("%w: circuit open after %d failures", interview.ErrGeneratorUnavailable, b.threshold)
	}

	text, err := b.next.Generate(ctx, req)
	if err != nil {
		b.recordFailure()
		return "", err
	}
	b.recordSuccess()
	return text, nil
}

// Evaluate implements interview.Generator. Evaluations run once per
// session and are not counted.
func (b *Breaker) Evaluate(ctx context.Context, c interview.Case, transcript []interview.Message) (interview.Breakdown, error) {
	return b.next.Evaluate(ctx, c, transcript)
}
