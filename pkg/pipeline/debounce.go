package pipeline

import (
	"sync"
	"time"

	"github.com/propertydeck/leadsync/pkg/models"
)

// Debouncer coalesces rapid filter edits into a single fetch issued after
// a quiet period. The latest descriptor wins; superseded timers are
// cancelled, not merely overwritten. Consecutive descriptors with equal
// fingerprints never fire twice.
type Debouncer struct {
	mu        sync.Mutex
	timer     *time.Timer
	interval  time.Duration
	lastFired string
	fire      func(models.QueryDescriptor)
}

// NewDebouncer creates a coalescing trigger around fire
func NewDebouncer(interval time.Duration, fire func(models.QueryDescriptor)) *Debouncer {
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	return &Debouncer{interval: interval, fire: fire}
}

// Trigger schedules a fetch for q after the quiet period, replacing any
// pending one.
func (d *Debouncer) Trigger(q models.QueryDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		fp := q.Fingerprint()
		if fp == d.lastFired {
			d.mu.Unlock()
			return
		}
		d.lastFired = fp
		d.mu.Unlock()

		d.fire(q)
	})
}

// Stop cancels any pending fetch
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
