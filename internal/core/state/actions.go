package state

import (
	"time"

	"github.com/colonyops/taskflow/internal/core/task"
)

// Action is a state transition request. The set of actions is sealed: only
// types in this package implement it.
type Action interface {
	isAction()
}

// CreateTask appends a top-level task.
type CreateTask struct {
	Task task.Task
}

// UpdateTask shallow-merges fields into the task with the given id anywhere
// in the forest. No-op if the id is absent.
type UpdateTask struct {
	ID    string
	Patch task.Patch
}

// DeleteTask removes the task with the given id and its whole subtree.
type DeleteTask struct {
	ID string
}

// CreateProject appends a project.
type CreateProject struct {
	Project task.Project
}

// UpdateProject shallow-merges fields into a project.
type UpdateProject struct {
	ID    string
	Patch task.ProjectPatch
}

// DeleteProject removes a project and every top-level task that belongs to
// it. Subtasks of surviving tasks are not filtered by project.
type DeleteProject struct {
	ID string
}

// SetTimer shallow-merges fields into the timer state. The generic escape
// hatch used by the timer engine's composite operations.
type SetTimer struct {
	Patch TimerPatch
}

// TimerPatch is a partial timer update. Nil fields are untouched.
type TimerPatch struct {
	IsRunning     *bool
	IsPaused      *bool
	CurrentTaskID *string
	ElapsedTime   *int
	StartTime     **time.Time
	PausedTime    *int64
	TaskStartTime **time.Time
}

// PauseTimer parks the running task's elapsed time and stops the clock.
// Effective only while running with a bound task.
type PauseTimer struct {
	Now time.Time
}

// ResumeTimer restarts the clock for a previously parked task. Effective
// only if the task has a paused snapshot.
type ResumeTimer struct {
	TaskID string
	Now    time.Time
}

// TickTimer recomputes elapsed time from absolute timestamps. Recomputation,
// not increment, so the clock self-corrects after suspension or drift.
type TickTimer struct {
	Now time.Time
}

// CheckOverdueTasks promotes active top-level tasks past their due date to
// overdue. Idempotent via the per-task isOverdue guard.
type CheckOverdueTasks struct {
	Now time.Time
}

// SetSelectedProject, SetSearchQuery, SetFilterPriority, SetFilterStatus,
// SetSelectedDate, and SetViewMode are simple field replacements.
type (
	SetSelectedProject struct{ ID string }
	SetSearchQuery     struct{ Query string }
	SetFilterPriority  struct{ Priority string }
	SetFilterStatus    struct{ Status string }
	SetSelectedDate    struct{ Date *time.Time }
	SetViewMode        struct{ Mode ViewMode }
)

// ToggleSidebar and ToggleFocusMode flip their respective UI flags.
type (
	ToggleSidebar   struct{}
	ToggleFocusMode struct{}
)

// LoadState replaces the whole state. Used for snapshot restoration and for
// multi-field patches the reducer cannot express atomically.
type LoadState struct {
	State AppState
}

// ImportData replaces just the tasks and projects collections.
type ImportData struct {
	Tasks    []task.Task
	Projects []task.Project
}

// SetGitHubConnection records a successful connect. Always resets the
// selected repository; the user must choose one explicitly.
type SetGitHubConnection struct {
	Token        string
	Username     string
	Repositories []Repo
}

// DisconnectGitHub clears the whole connection block.
type DisconnectGitHub struct{}

// SelectGitHubRepo records the repository the snapshot syncs to.
type SelectGitHubRepo struct {
	Name string
}

// SetSyncStatus shallow-merges fields into the sync status block.
type SetSyncStatus struct {
	Patch SyncStatusPatch
}

// SyncStatusPatch is a partial sync-status update.
type SyncStatusPatch struct {
	IsLoading *bool
	LastSync  **time.Time
	Error     *string
}

func (CreateTask) isAction()          {}
func (UpdateTask) isAction()          {}
func (DeleteTask) isAction()          {}
func (CreateProject) isAction()       {}
func (UpdateProject) isAction()       {}
func (DeleteProject) isAction()       {}
func (SetTimer) isAction()            {}
func (PauseTimer) isAction()          {}
func (ResumeTimer) isAction()         {}
func (TickTimer) isAction()           {}
func (CheckOverdueTasks) isAction()   {}
func (SetSelectedProject) isAction()  {}
func (SetSearchQuery) isAction()      {}
func (SetFilterPriority) isAction()   {}
func (SetFilterStatus) isAction()     {}
func (SetSelectedDate) isAction()     {}
func (SetViewMode) isAction()         {}
func (ToggleSidebar) isAction()       {}
func (ToggleFocusMode) isAction()     {}
func (LoadState) isAction()           {}
func (ImportData) isAction()          {}
func (SetGitHubConnection) isAction() {}
func (DisconnectGitHub) isAction()    {}
func (SelectGitHubRepo) isAction()    {}
func (SetSyncStatus) isAction()       {}
