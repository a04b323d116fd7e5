// Package sweep promotes active tasks past their due date to overdue on a
// fixed interval.
package sweep

import (
	"context"
	"time"

	"github.com/colonyops/taskflow/internal/core/logging"
	"github.com/colonyops/taskflow/internal/core/state"
)

// DefaultInterval is how often the overdue scan runs.
const DefaultInterval = time.Minute

// Start launches the periodic overdue scan against the store. The scan
// itself is idempotent, so an extra pass is always safe. It blocks until the
// context is cancelled.
func Start(ctx context.Context, store *state.Store, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}

	log := logging.Component("sweep")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Dispatch(state.CheckOverdueTasks{Now: now()})
			log.Debug().Msg("overdue sweep completed")
		}
	}
}
