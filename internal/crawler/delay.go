package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Politeness defaults.
const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 5 * time.Second

	// historySize is the number of response times averaged.
	historySize = 5

	// increaseWeight amplifies a slowdown of the server.
	increaseWeight = 3.0
)

// AdaptiveDelay spaces out requests to one site. The spacing follows the
// moving average of recent response times: it grows three times faster
// than the server slows down, shrinks as fast as it speeds up, and doubles
// on a rejected request. It always stays within [min, max].
type AdaptiveDelay struct {
	mu      sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
	delay    time.Duration
	history  []time.Duration
	limiter  *rate.Limiter
}

// NewAdaptiveDelay creates a delay starting at min.
// A zero min disables spacing entirely.
func NewAdaptiveDelay(minDelay, maxDelay time.Duration) *AdaptiveDelay {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	d := &AdaptiveDelay{
		minDelay: minDelay,
		maxDelay: maxDelay,
		delay:    minDelay,
	}
	d.limiter = rate.NewLimiter(limitFor(minDelay), 1)
	return d
}

func limitFor(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

// Wait blocks until the next request may start.
func (d *AdaptiveDelay) Wait(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

// Current returns the current spacing.
func (d *AdaptiveDelay) Current() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delay
}

// Observe feeds the response time of a successful request.
func (d *AdaptiveDelay) Observe(elapsed time.Duration) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := average(d.history)
	if len(d.history) >= historySize {
		d.history = d.history[1:]
	}
	d.history = append(d.history, elapsed)
	cur := average(d.history)

	var change float64
	if prev != 0 {
		change = float64(cur-prev) / float64(prev)
	}
	if change > 0 {
		change *= increaseWeight
	}

	d.set(time.Duration(float64(d.delay) * (1 + change)))
	return d.delay
}

// Backoff doubles the spacing after the server rejected a request.
func (d *AdaptiveDelay) Backoff() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.set(d.delay * 2)
	return d.delay
}

// set clamps v and applies it to the limiter. Caller holds mu.
func (d *AdaptiveDelay) set(v time.Duration) {
	v = max(d.minDelay, min(d.maxDelay, v))
	d.delay = v
	d.limiter.SetLimit(limitFor(v))
}

func average(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range ds {
		sum += v
	}
	return sum / time.Duration(len(ds))
}
