package stores

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/colonyops/taskflow/internal/core/logging"
)

const (
	watchDebounce   = 250 * time.Millisecond
	eventBufferSize = 16
)

// SnapshotWatcher watches the snapshot file with fsnotify and reports when
// another process rewrites it, so the running app can reload its state.
// Writes performed through the SnapshotStore land as a rename of a .tmp
// file, which fsnotify reports on the watched directory as well; callers
// are expected to tolerate self-triggered reloads (Load is idempotent).
type SnapshotWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
	closed   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotWatcher starts watching the directory containing the snapshot.
// Watching the directory rather than the file survives the atomic
// tmp+rename write pattern, which replaces the inode.
func NewSnapshotWatcher(snapshotPath string) (*SnapshotWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(snapshotPath)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sw := &SnapshotWatcher{
		path:    snapshotPath,
		watcher: watcher,
		events:  make(chan struct{}, eventBufferSize),
		cancel:  cancel,
	}

	sw.wg.Add(1)
	go sw.run(ctx)

	return sw, nil
}

// Events returns the channel that receives a signal per (debounced)
// snapshot change.
func (sw *SnapshotWatcher) Events() <-chan struct{} {
	return sw.events
}

// Close stops watching and closes the event channel.
func (sw *SnapshotWatcher) Close() error {
	sw.cancel()

	err := sw.watcher.Close()
	sw.wg.Wait()

	// Stop() cannot retract a debounce timer whose callback already
	// started, so the closed flag and the channel close share the mutex
	// with emit.
	sw.mu.Lock()
	if sw.debounce != nil {
		sw.debounce.Stop()
	}
	sw.closed = true
	close(sw.events)
	sw.mu.Unlock()

	return err
}

func (sw *SnapshotWatcher) run(ctx context.Context) {
	defer sw.wg.Done()

	log := logging.Component("stores")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handleEvent(event)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("snapshot watch error")
		}
	}
}

func (sw *SnapshotWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Base(event.Name) != filepath.Base(sw.path) {
		return
	}

	// Debounce: an editor save or atomic rename produces several events.
	sw.mu.Lock()
	if sw.debounce != nil {
		sw.debounce.Stop()
	}
	sw.debounce = time.AfterFunc(watchDebounce, sw.emit)
	sw.mu.Unlock()
}

func (sw *SnapshotWatcher) emit() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return
	}
	select {
	case sw.events <- struct{}{}:
	default:
		// Channel full, drop event to prevent blocking
	}
}
