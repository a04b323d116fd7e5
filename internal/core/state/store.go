package state

import (
	"sync"

	"github.com/colonyops/taskflow/internal/core/logging"
)

// Store serializes all state mutation behind a mutex. Components never hold
// a reference into the live state; State returns a snapshot value.
//
// Commit hooks replace the original design's side effects buried inside
// mutation functions: the store notifies after each commit and the
// subscribers (persistence debouncer, sync scheduler) decide what to do.
type Store struct {
	mu    sync.Mutex
	state AppState

	hookMu   sync.RWMutex
	onCommit []func(AppState)
}

// NewStore creates a store seeded with the given state.
func NewStore(initial AppState) *Store {
	return &Store{state: initial}
}

// State returns the current state value.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies an action through the reducer and notifies commit hooks
// with the resulting state. Hooks run outside the state lock.
func (s *Store) Dispatch(action Action) AppState {
	s.mu.Lock()
	next := Reduce(s.state, action)
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return next
}

// Update applies fn to the current state under the same lock Dispatch
// holds, for mutations with no reducer action (tree inserts). A
// read-modify-write through State plus Dispatch(LoadState) would lose any
// commit that lands in between. fn must be pure; hooks fire as for any
// action.
func (s *Store) Update(fn func(AppState) AppState) AppState {
	s.mu.Lock()
	next := fn(s.state)
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return next
}

func (s *Store) notify(next AppState) {
	s.hookMu.RLock()
	hooks := make([]func(AppState), len(s.onCommit))
	copy(hooks, s.onCommit)
	s.hookMu.RUnlock()

	for _, fn := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log := logging.Component("state")
					log.Error().Any("recovered", r).Msg("commit hook panicked")
				}
			}()
			fn(next)
		}()
	}
}

// OnCommit registers a hook invoked after every committed action.
func (s *Store) OnCommit(fn func(AppState)) {
	s.hookMu.Lock()
	s.onCommit = append(s.onCommit, fn)
	s.hookMu.Unlock()
}
