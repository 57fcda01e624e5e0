package explain

import (
	"sync"
	"time"
)

// breaker switches the model path off after consecutive failures. With a
// cooldown it lets one trial call through once the cooldown has passed.
type breaker struct {
	limit    int
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	trial    bool
}

func newBreaker(limit int, cooldown time.Duration) *breaker {
	return &breaker{limit: limit, cooldown: cooldown, now: time.Now}
}

func (b *breaker) isOpen() bool {
	return b.limit > 0 && b.failures >= b.limit
}

// allow reports whether a call may go to the generator. Once the cooldown
// has passed exactly one caller gets through until it reports back.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isOpen() {
		return true
	}
	if b.cooldown <= 0 || b.trial || b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}
	b.trial = true
	return true
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.trial = false
}

// failure records a failed call and returns the consecutive failure count.
func (b *breaker) failure() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.trial = false
	if b.isOpen() {
		b.openedAt = b.now()
	}
	return b.failures
}

// unavailable reports whether the model path is off and not yet due a trial.
// n is the consecutive failure count.
func (b *breaker) unavailable() (n int, off bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isOpen() {
		return b.failures, false
	}
	if b.cooldown > 0 && b.now().Sub(b.openedAt) >= b.cooldown {
		return b.failures, false
	}
	return b.failures, true
}
