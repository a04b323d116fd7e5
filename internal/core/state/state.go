// Package state holds the single application state, the action types that
// mutate it, and the pure reducer that applies them. All mutation anywhere in
// the app flows through Store.Dispatch.
package state

import (
	"time"

	"github.com/colonyops/taskflow/internal/core/task"
)

// ViewMode selects the main content view.
type ViewMode string

// Supported view modes.
const (
	ViewTasks    ViewMode = "tasks"
	ViewCalendar ViewMode = "calendar"
)

// PausedTask parks a task's timer progress while another task runs or while
// the task itself is paused. Multiple tasks may be parked concurrently.
type PausedTask struct {
	ElapsedTime int       `json:"elapsedTime"` // seconds
	PausedAt    time.Time `json:"pausedAt"`
}

// TimerState is the single process-wide timer. At most one task runs at a
// time; IsRunning and IsPaused are never both true.
type TimerState struct {
	IsRunning     bool                  `json:"isRunning"`
	IsPaused      bool                  `json:"isPaused"`
	CurrentTaskID string                `json:"currentTaskId,omitempty"`
	ElapsedTime   int                   `json:"elapsedTime"` // seconds
	StartTime     *time.Time            `json:"startTime,omitempty"`
	PausedTime    int64                 `json:"pausedTime"` // accumulated ms offset
	TaskStartTime *time.Time            `json:"taskStartTime,omitempty"`
	PausedTasks   map[string]PausedTask `json:"pausedTasks,omitempty"`
}

// Repo is a remote repository the snapshot can be synced to.
type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
}

// SyncStatus tracks the health of the remote sync subsystem.
type SyncStatus struct {
	IsLoading bool       `json:"isLoading"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// GitHubState is the remote connection block. The token lives in memory and
// in the local snapshot only; it is redacted before any remote upload.
type GitHubState struct {
	IsConnected  bool       `json:"isConnected"`
	Token        string     `json:"token,omitempty"`
	Username     string     `json:"username,omitempty"`
	SelectedRepo string     `json:"selectedRepo,omitempty"`
	Repositories []Repo     `json:"repositories"`
	SyncStatus   SyncStatus `json:"syncStatus"`
}

// AppState aggregates everything the app knows. Constructed once at startup,
// optionally replaced wholesale by a restored snapshot, thereafter mutated
// only via reducer actions.
type AppState struct {
	Tasks            []task.Task    `json:"tasks"`
	Projects         []task.Project `json:"projects"`
	Timer            TimerState     `json:"timer"`
	SelectedProject  string         `json:"selectedProject,omitempty"`
	SearchQuery      string         `json:"searchQuery"`
	FilterPriority   string         `json:"filterPriority"`
	FilterStatus     string         `json:"filterStatus"`
	SidebarCollapsed bool           `json:"sidebarCollapsed"`
	FocusMode        bool           `json:"focusMode"`
	SelectedDate     *time.Time     `json:"selectedDate,omitempty"`
	ViewMode         ViewMode       `json:"viewMode"`
	GitHub           GitHubState    `json:"github"`
}

// Default returns the bootstrap state: no tasks, the undeletable default
// project, an idle timer, and a disconnected sync block.
func Default(now time.Time) AppState {
	return AppState{
		Tasks:          []task.Task{},
		Projects:       []task.Project{task.DefaultProject(now)},
		Timer:          TimerState{PausedTasks: map[string]PausedTask{}},
		FilterPriority: "all",
		FilterStatus:   "all",
		ViewMode:       ViewTasks,
		GitHub: GitHubState{
			Repositories: []Repo{},
		},
	}
}

// clonePausedTasks copies the paused-task map so reducer outputs never share
// mutable map storage with their inputs.
func clonePausedTasks(m map[string]PausedTask) map[string]PausedTask {
	out := make(map[string]PausedTask, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
