package shopify

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultRequestDelay is the minimum gap between two requests.
	DefaultRequestDelay = 500 * time.Millisecond
	// DefaultThrottledDelay is the gap used once the store reports high quota usage.
	DefaultThrottledDelay = 1 * time.Second
	// DefaultQuotaThreshold is the used/limit ratio that triggers the slower pace.
	DefaultQuotaThreshold = 0.8

	callLimitHeader = "X-Shopify-Shop-Api-Call-Limit"
)

// CallLimit is the parsed value of the call limit header ("current/limit").
type CallLimit struct {
	Current int
	Limit   int
}

// ParseCallLimit parses "32/40". Malformed values return false.
func ParseCallLimit(value string) (CallLimit, bool) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 {
		return CallLimit{}, false
	}
	current, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return CallLimit{}, false
	}
	limit, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || limit <= 0 {
		return CallLimit{}, false
	}
	return CallLimit{Current: current, Limit: limit}, true
}

// Throttle holds the pacing state of one client: the time of the last
// request and the current inter-request delay. The delay only ever grows.
type Throttle struct {
	mu             sync.Mutex
	delay          time.Duration
	throttledDelay time.Duration
	threshold      float64
	lastRequest    time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle; zero values fall back to the defaults.
func NewThrottle(delay, throttledDelay time.Duration, threshold float64) *Throttle {
	if delay <= 0 {
		delay = DefaultRequestDelay
	}
	if throttledDelay <= 0 {
		throttledDelay = DefaultThrottledDelay
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultQuotaThreshold
	}
	return &Throttle{
		delay:          delay,
		throttledDelay: throttledDelay,
		threshold:      threshold,
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// Wait blocks until at least the current delay has passed since the last
// recorded request.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	var wait time.Duration
	if !t.lastRequest.IsZero() {
		if elapsed := t.now().Sub(t.lastRequest); elapsed < t.delay {
			wait = t.delay - elapsed
		}
	}
	t.mu.Unlock()

	return t.sleep(ctx, wait)
}

// Record marks a request as finished and applies the call limit header if
// present. It reports whether the delay was raised.
func (t *Throttle) Record(callLimit string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastRequest = t.now()

	cl, ok := ParseCallLimit(callLimit)
	if !ok {
		return false
	}
	if float64(cl.Current) > t.threshold*float64(cl.Limit) && t.delay < t.throttledDelay {
		t.delay = t.throttledDelay
		return true
	}
	return false
}

// Delay returns the current inter-request delay.
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// LastRequest returns when the last request finished.
func (t *Throttle) LastRequest() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRequest
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
