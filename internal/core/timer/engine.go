// Package timer implements the work-timer lifecycle on top of the state
// store: a single running segment bound to one task, with pause/resume
// support for any number of parked tasks.
package timer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskflow/internal/core/logging"
	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
)

// TickInterval is how often elapsed time is recomputed while running.
const TickInterval = time.Second

// Engine drives the composite timer operations. Each operation is a task
// field update plus a TimerState transition, both through the store.
type Engine struct {
	store *state.Store
	now   func() time.Time
	log   zerolog.Logger
}

// New creates a timer engine. The now function defaults to time.Now.
func New(store *state.Store, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store: store,
		now:   now,
		log:   logging.Component("timer"),
	}
}

// Start binds the timer to taskID and begins a fresh running segment.
//
// Starting while another task is running abandons that task's live segment
// without pausing it: the prior task stays active with no timer backing it.
// Kept as current behavior; see DESIGN.md.
func (e *Engine) Start(taskID string) {
	now := e.now()
	startTime := &now

	e.store.Dispatch(state.UpdateTask{
		ID:    taskID,
		Patch: task.Patch{Status: task.Ptr(task.StatusActive)},
	})
	e.store.Dispatch(state.SetTimer{Patch: state.TimerPatch{
		IsRunning:     task.Ptr(true),
		IsPaused:      task.Ptr(false),
		CurrentTaskID: task.Ptr(taskID),
		ElapsedTime:   task.Ptr(0),
		StartTime:     &startTime,
		PausedTime:    task.Ptr(int64(0)),
		TaskStartTime: &startTime,
	}})

	e.log.Debug().Str("task_id", taskID).Msg("timer started")
}

// Pause parks the running task. The task record gets the elapsed seconds and
// pause instant so the pause survives a restart; the timer keeps the task
// bound but stops ticking.
func (e *Engine) Pause() {
	s := e.store.State()
	if !s.Timer.IsRunning || s.Timer.CurrentTaskID == "" {
		return
	}

	now := e.now()
	taskID := s.Timer.CurrentTaskID
	elapsed := s.Timer.ElapsedTime

	e.store.Dispatch(state.PauseTimer{Now: now})
	e.store.Dispatch(state.UpdateTask{
		ID: taskID,
		Patch: task.Patch{
			Status:       task.Ptr(task.StatusPaused),
			PausedTime:   task.Ptr(elapsed),
			LastPausedAt: &now,
		},
	})

	e.log.Debug().Str("task_id", taskID).Int("elapsed_s", elapsed).Msg("timer paused")
}

// Resume restarts the clock for a parked task and marks it active again.
// No-op if the task has no paused snapshot.
func (e *Engine) Resume(taskID string) {
	s := e.store.State()
	if _, ok := s.Timer.PausedTasks[taskID]; !ok {
		return
	}

	e.store.Dispatch(state.ResumeTimer{TaskID: taskID, Now: e.now()})
	e.store.Dispatch(state.UpdateTask{
		ID:    taskID,
		Patch: task.Patch{Status: task.Ptr(task.StatusActive)},
	})

	e.log.Debug().Str("task_id", taskID).Msg("timer resumed")
}

// Complete finishes the bound task: banked minutes are added to actualTime,
// status follows the overdue guard, and the timer fully resets to idle.
// Effective only when the timer is bound to taskID.
func (e *Engine) Complete(taskID string) {
	s := e.store.State()
	if s.Timer.CurrentTaskID != taskID {
		return
	}

	current, ok := task.FindByID(s.Tasks, taskID)
	if !ok {
		return
	}

	now := e.now()
	status := task.StatusCompleted
	if current.IsOverdue {
		status = task.StatusOverdue
	}
	additional := s.Timer.ElapsedTime / 60

	e.store.Dispatch(state.UpdateTask{
		ID: taskID,
		Patch: task.Patch{
			Status:      task.Ptr(status),
			ActualTime:  task.Ptr(current.ActualTime + additional),
			CompletedAt: &now,
		},
	})
	e.resetTimer()

	e.log.Debug().Str("task_id", taskID).Int("added_min", additional).Msg("task completed")
}

// Cancel returns the task to todo. If the timer was bound to it, the timer
// resets and the accumulated time is discarded.
func (e *Engine) Cancel(taskID string) {
	e.store.Dispatch(state.UpdateTask{
		ID:    taskID,
		Patch: task.Patch{Status: task.Ptr(task.StatusTodo)},
	})

	if e.store.State().Timer.CurrentTaskID == taskID {
		e.resetTimer()
	}

	e.log.Debug().Str("task_id", taskID).Msg("task cancelled")
}

// Run dispatches a tick every second while a timer is running. Blocks until
// the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.store.State().Timer.IsRunning {
				e.store.Dispatch(state.TickTimer{Now: e.now()})
			}
		}
	}
}

func (e *Engine) resetTimer() {
	var nilTime *time.Time
	e.store.Dispatch(state.SetTimer{Patch: state.TimerPatch{
		IsRunning:     task.Ptr(false),
		IsPaused:      task.Ptr(false),
		CurrentTaskID: task.Ptr(""),
		ElapsedTime:   task.Ptr(0),
		StartTime:     &nilTime,
		PausedTime:    task.Ptr(int64(0)),
		TaskStartTime: &nilTime,
	}})
}
