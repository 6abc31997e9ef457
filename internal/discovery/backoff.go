package discovery

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the configuration for exponential backoff
// between discovery poll attempts.
type BackoffConfig struct {
	Initial    time.Duration // first retry delay
	Max        time.Duration // delay ceiling
	Multiplier float64       // growth factor per attempt
	JitterPct  float64       // jitter as a fraction of the delay (0.4 = ±20%)
}

// DefaultBackoffConfig returns sensible defaults for polling a browser
// that is still starting up.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// Backoff calculates exponential retry delays with jitter. Jitter
// keeps concurrent attach attempts from synchronizing their polls.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff calculator. The seed makes jitter
// deterministic in tests.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next delay and increments the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.attempts++
	return delay
}

// Calculate returns the current delay without incrementing attempts.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.attempts))
	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	if b.config.JitterPct > 0 {
		jitterRange := delay * b.config.JitterPct
		delay += jitterRange*b.rng.Float64() - jitterRange/2
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Reset resets the attempt counter to zero.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the current attempt count.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Wait polls Discover with backoff until it succeeds, the deadline
// passes, or the context is cancelled. Useful when attaching to a
// browser that is still binding its debugging port. The final error is
// the last DiscoveryError observed.
func (c *Client) Wait(ctx context.Context, baseURL string, deadline time.Duration) (string, error) {
	waitCtx := ctx
	if deadline > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	backoff := NewBackoff(time.Now().UnixNano(), DefaultBackoffConfig())

	for {
		endpoint, err := c.Discover(waitCtx, baseURL)
		if err == nil {
			return endpoint, nil
		}

		select {
		case <-waitCtx.Done():
			return "", err
		case <-time.After(backoff.Next()):
		}
	}
}
