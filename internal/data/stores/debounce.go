package stores

import (
	"sync"
	"time"

	"github.com/colonyops/taskflow/internal/core/logging"
	"github.com/colonyops/taskflow/internal/core/state"
)

// Debouncer coalesces a burst of state commits into a single trailing-edge
// snapshot write: each Notify restarts the quiet-period timer, and only the
// last state seen is written.
type Debouncer struct {
	snap  *SnapshotStore
	delay time.Duration

	mu      sync.Mutex
	pending *state.AppState
	timer   *time.Timer
	closed  bool
}

// NewDebouncer creates a debouncer that writes to snap after delay of quiet.
func NewDebouncer(snap *SnapshotStore, delay time.Duration) *Debouncer {
	return &Debouncer{snap: snap, delay: delay}
}

// Notify records the latest state and (re)starts the quiet-period timer.
// Intended to be registered as a store commit hook.
func (d *Debouncer) Notify(st state.AppState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.pending = &st
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// Flush writes any pending state immediately. Used on shutdown so the last
// burst is never lost to the quiet period.
func (d *Debouncer) Flush() {
	d.flush()
}

// Close flushes and stops accepting further notifications.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.flush()
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	if pending == nil {
		return
	}

	if err := d.snap.Save(*pending); err != nil {
		log := logging.Component("stores")
		log.Error().Err(err).Msg("snapshot write failed")
	}
}
