package fetcher

import (
	"math/rand"
	"sync"
	"time"
)

// Fetcher is the contract for retrieving a rendered page.
// Selector misses on the returned document are handled by the parsers as
// "field absent"; only transport-level failures surface as errors here.
type Fetcher interface {
	// Fetch retrieves the HTML content of the given URL
	Fetch(url string) (string, error)
	// Close releases any underlying resources (browser session, connections)
	Close() error
}

// Throttle enforces a minimum, jittered interval between requests. Hammering
// the site gets the session flagged by its anti-automation layer, which then
// degrades every downstream extraction, so this is applied before every fetch.
type Throttle struct {
	delay  time.Duration
	jitter time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewThrottle creates a Throttle with the given base delay and jitter window.
func NewThrottle(delay, jitter time.Duration) *Throttle {
	return &Throttle{delay: delay, jitter: jitter}
}

// Wait blocks until the next request is allowed.
func (t *Throttle) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()

	interval := t.delay
	if t.jitter > 0 {
		interval += time.Duration(rand.Int63n(int64(t.jitter)))
	}

	elapsed := time.Since(t.last)
	if elapsed < interval {
		time.Sleep(interval - elapsed)
	}
	t.last = time.Now()
}
