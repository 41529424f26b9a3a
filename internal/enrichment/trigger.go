package enrichment

import (
	"sync"
	"time"
)

// Trigger coalesces re-aggregation requests. The first Request in a quiet
// period arms a timer; requests arriving before it fires collapse into
// that single firing.
type Trigger struct {
	window time.Duration
	mu     sync.Mutex
	timer  *time.Timer
	c      chan struct{}
}

// NewTrigger creates a trigger that fires window after the first request
func NewTrigger(window time.Duration) *Trigger {
	return &Trigger{
		window: window,
		c:      make(chan struct{}, 1),
	}
}

// Request asks for a re-aggregation
func (t *Trigger) Request() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.window, t.fire)
}

func (t *Trigger) fire() {
	t.mu.Lock()
	t.timer = nil
	t.mu.Unlock()

	select {
	case t.c <- struct{}{}:
	default:
	}
}

// C delivers one value per coalesced burst
func (t *Trigger) C() <-chan struct{} {
	return t.c
}

// Stop cancels a pending firing
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
