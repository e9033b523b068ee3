package limiter

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter
// Specialized component to keep the gateway polite toward proxied servers
// Responsibilities:
// - Bookkeep each hostname's last fetch timestamp
// - Compute the final delay for each hostname given various factors
// - Back off hosts that answer with SLOW DOWN style statuses
type RateLimiter interface {
	SetBaseDelay(baseDelay time.Duration)
	SetJitter(jitter time.Duration)
	SetRandomSeed(randomSeed int64)
	SetHostDelay(host string, delay time.Duration)
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	ResolveDelay(host string) time.Duration
}

type ConcurrentRateLimiter struct {
	mu          sync.RWMutex
	rngMu       sync.Mutex
	baseDelay   time.Duration
	jitter      time.Duration
	hostTimings map[string]hostTiming
	rng         *rand.Rand
}

func NewConcurrentRateLimiter() *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		hostTimings: make(map[string]hostTiming),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ConcurrentRateLimiter) SetBaseDelay(baseDelay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.baseDelay = baseDelay
}

func (r *ConcurrentRateLimiter) SetJitter(jitter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jitter = jitter
}

func (r *ConcurrentRateLimiter) SetRandomSeed(randomSeed int64) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	r.rng = rand.New(rand.NewSource(randomSeed))
}

// SetHostDelay sets a per-host delay, separate from the global base delay.
func (r *ConcurrentRateLimiter) SetHostDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	currentHostTiming := r.hostTimings[host]
	currentHostTiming.hostDelay = delay
	r.hostTimings[host] = currentHostTiming
}

// exponentialBackoffDelay computes exponential backoff based on count
// Does NOT take lock; caller must hold r.mu (RLock or Lock)
func (r *ConcurrentRateLimiter) exponentialBackoffDelay(backoffCount int) time.Duration {
	initialBackoff := 1 * time.Second
	multiplier := 2.0
	maxBackoff := 30 * time.Second

	// initial * (multiplier ^ (count - 1)); first backoff sleeps initialBackoff
	exponent := float64(backoffCount - 1)
	delay := float64(initialBackoff) * math.Pow(multiplier, exponent)
	if delay > float64(maxBackoff) {
		delay = float64(maxBackoff)
	}

	if r.jitter > 0 {
		delay += float64(r.computeJitter(r.jitter))
	}

	return time.Duration(delay)
}

// Backoff triggers exponential backoff for the given host.
// It increments the backoff counter and computes the delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	currentHostTiming := r.hostTimings[host]
	currentHostTiming.backoffCount++
	currentHostTiming.backoffDelay = r.exponentialBackoffDelay(currentHostTiming.backoffCount)
	r.hostTimings[host] = currentHostTiming
}

// ResetBackoff resets the backoff counter for the given host.
// Called after a successful fetch to clear backoff state.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	currentHostTiming, exists := r.hostTimings[host]
	if exists {
		currentHostTiming.backoffCount = 0
		currentHostTiming.backoffDelay = time.Duration(0)
		r.hostTimings[host] = currentHostTiming
	}
}

// MarkLastFetchAsNow records time.Now() as the host's last fetch timestamp.
func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	currentHostTiming := r.hostTimings[host]
	currentHostTiming.lastFetchAt = time.Now()
	r.hostTimings[host] = currentHostTiming
}

// computeJitter returns a pseudo-random duration between 0 and max.
func (r *ConcurrentRateLimiter) computeJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return time.Duration(r.rng.Int63n(int64(max)))
}

// ResolveDelay computes how long the caller must wait before contacting
// the given host again.
// FinalDelay = max(BaseDelay, HostDelay, BackoffDelay) - elapsed since last fetch
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.RLock()
	currentHostTiming, exists := r.hostTimings[host]
	base := r.baseDelay
	r.mu.RUnlock()

	// no delay if the host has not been contacted yet
	if !exists || currentHostTiming.lastFetchAt.IsZero() {
		return time.Duration(0)
	}

	required := base
	if currentHostTiming.hostDelay > required {
		required = currentHostTiming.hostDelay
	}
	if currentHostTiming.backoffDelay > required {
		required = currentHostTiming.backoffDelay
	}

	elapsed := time.Since(currentHostTiming.lastFetchAt)
	if elapsed >= required {
		return time.Duration(0)
	}
	return required - elapsed
}
