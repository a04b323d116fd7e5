// Package taskflow wires the state store, timer engine, sync protocol, and
// persistence into the operations the UI layer calls. Mutations go through
// the reducer; task mutations additionally schedule a background sync.
package taskflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskflow/internal/core/logging"
	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
	"github.com/colonyops/taskflow/internal/core/timer"
	"github.com/colonyops/taskflow/internal/data/stores"
)

// Operation failures surfaced to the API layer.
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrProjectNotFound     = errors.New("project not found")
	ErrProjectNotDeletable = errors.New("project cannot be deleted")
	ErrTitleRequired       = errors.New("title is required")
	ErrProjectNameRequired = errors.New("project name is required")
	ErrInvalidPriority     = errors.New("invalid priority")
)

// UploadScheduler is what Service needs from the sync subsystem. Nil means
// sync is disabled.
type UploadScheduler interface {
	ScheduleUpload()
}

// Service is the application facade. One instance per process.
type Service struct {
	store  *state.Store
	engine *timer.Engine
	sync   UploadScheduler
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates the facade. sync may be nil; now defaults to time.Now.
func NewService(store *state.Store, engine *timer.Engine, sync UploadScheduler, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		engine: engine,
		sync:   sync,
		now:    now,
		log:    logging.Component("taskflow"),
	}
}

// State returns the current application state.
func (s *Service) State() state.AppState {
	return s.store.State()
}

// TaskParams is the user-supplied portion of a new task.
type TaskParams struct {
	Title         string
	Description   string
	ProjectID     string
	Priority      task.Priority
	DueDate       *time.Time
	EstimatedTime int
	Tags          []string
}

func (p *TaskParams) validate() error {
	if p.Title == "" {
		return ErrTitleRequired
	}
	if p.ProjectID == "" {
		p.ProjectID = task.DefaultProjectID
	}
	if p.Priority == "" {
		p.Priority = task.PriorityMedium
	}
	switch p.Priority {
	case task.PriorityLow, task.PriorityMedium, task.PriorityHigh:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPriority, p.Priority)
	}
	return nil
}

func (p TaskParams) build(now time.Time) task.Task {
	t := task.New(p.Title, p.Description, p.ProjectID, p.Priority, now)
	t.DueDate = p.DueDate
	t.EstimatedTime = p.EstimatedTime
	if len(p.Tags) > 0 {
		t.Tags = p.Tags
	}
	return t
}

// CreateTask appends a top-level task and schedules a background sync.
func (s *Service) CreateTask(p TaskParams) (task.Task, error) {
	if err := p.validate(); err != nil {
		return task.Task{}, err
	}

	t := p.build(s.now())
	s.store.Dispatch(state.CreateTask{Task: t})
	s.scheduleSync()

	s.log.Debug().Str("task_id", t.ID).Str("project", t.ProjectID).Msg("task created")
	return t, nil
}

// CreateSubtask inserts a child under the given parent. The reducer has no
// tree-insert action; the insertion runs atomically through Store.Update so
// concurrent commits are never overwritten.
func (s *Service) CreateSubtask(parentID string, p TaskParams) (task.Task, error) {
	if err := p.validate(); err != nil {
		return task.Task{}, err
	}

	child := p.build(s.now())
	child.ParentID = parentID

	var parentFound bool
	s.store.Update(func(st state.AppState) state.AppState {
		if _, ok := task.FindByID(st.Tasks, parentID); !ok {
			return st
		}
		parentFound = true
		st.Tasks = task.InsertSubtask(st.Tasks, parentID, child)
		return st
	})
	if !parentFound {
		return task.Task{}, fmt.Errorf("parent %s: %w", parentID, ErrTaskNotFound)
	}
	s.scheduleSync()

	s.log.Debug().Str("task_id", child.ID).Str("parent_id", parentID).Msg("subtask created")
	return child, nil
}

// UpdateTask merges the patch into the task anywhere in the forest.
func (s *Service) UpdateTask(id string, patch task.Patch) error {
	if _, ok := task.FindByID(s.store.State().Tasks, id); !ok {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}

	s.store.Dispatch(state.UpdateTask{ID: id, Patch: patch})
	s.scheduleSync()
	return nil
}

// DeleteTask removes the task and its whole subtree.
func (s *Service) DeleteTask(id string) error {
	if _, ok := task.FindByID(s.store.State().Tasks, id); !ok {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}

	s.store.Dispatch(state.DeleteTask{ID: id})
	s.scheduleSync()

	s.log.Debug().Str("task_id", id).Msg("task deleted")
	return nil
}

// ToggleComplete flips a task between done and todo. Completing an
// already-overdue task lands it back in overdue, not completed; uncompleting
// always returns to todo.
func (s *Service) ToggleComplete(id string) error {
	current, ok := task.FindByID(s.store.State().Tasks, id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}

	var patch task.Patch
	if current.Status == task.StatusCompleted {
		patch.Status = task.Ptr(task.StatusTodo)
	} else {
		status := task.StatusCompleted
		if current.IsOverdue {
			status = task.StatusOverdue
		}
		now := s.now()
		patch.Status = task.Ptr(status)
		patch.CompletedAt = &now
	}

	s.store.Dispatch(state.UpdateTask{ID: id, Patch: patch})
	s.scheduleSync()
	return nil
}

// StartTimer begins a running segment for the task.
func (s *Service) StartTimer(taskID string) error {
	if _, ok := task.FindByID(s.store.State().Tasks, taskID); !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	s.engine.Start(taskID)
	s.scheduleSync()
	return nil
}

// PauseTimer parks the running task.
func (s *Service) PauseTimer() {
	s.engine.Pause()
}

// ResumeTimer restarts the clock for a parked task.
func (s *Service) ResumeTimer(taskID string) {
	s.engine.Resume(taskID)
}

// CompleteTask finishes the task currently bound to the timer.
func (s *Service) CompleteTask(taskID string) error {
	if _, ok := task.FindByID(s.store.State().Tasks, taskID); !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	s.engine.Complete(taskID)
	s.scheduleSync()
	return nil
}

// CancelTask returns the task to todo and discards any accumulated time.
func (s *Service) CancelTask(taskID string) error {
	if _, ok := task.FindByID(s.store.State().Tasks, taskID); !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	s.engine.Cancel(taskID)
	s.scheduleSync()
	return nil
}

// CreateProject adds a user project. User projects are always deletable.
func (s *Service) CreateProject(name, color string) (task.Project, error) {
	if name == "" {
		return task.Project{}, ErrProjectNameRequired
	}

	p := task.NewProject(name, color, s.now())
	s.store.Dispatch(state.CreateProject{Project: p})

	s.log.Debug().Str("project_id", p.ID).Str("name", name).Msg("project created")
	return p, nil
}

// UpdateProject merges the patch into the project.
func (s *Service) UpdateProject(id string, patch task.ProjectPatch) error {
	if !s.projectExists(id) {
		return fmt.Errorf("project %s: %w", id, ErrProjectNotFound)
	}
	s.store.Dispatch(state.UpdateProject{ID: id, Patch: patch})
	return nil
}

// DeleteProject removes a project and its top-level tasks. The bootstrap
// project is refused.
func (s *Service) DeleteProject(id string) error {
	st := s.store.State()
	for _, p := range st.Projects {
		if p.ID != id {
			continue
		}
		if !p.IsDeletable {
			return fmt.Errorf("project %s: %w", id, ErrProjectNotDeletable)
		}
		s.store.Dispatch(state.DeleteProject{ID: id})
		s.log.Debug().Str("project_id", id).Msg("project deleted")
		return nil
	}
	return fmt.Errorf("project %s: %w", id, ErrProjectNotFound)
}

// Export serializes the full state and returns it with its artifact name.
func (s *Service) Export() ([]byte, string, error) {
	data, err := stores.Export(s.store.State())
	if err != nil {
		return nil, "", err
	}
	return data, stores.ExportFilename(s.now()), nil
}

// Import replaces the task and project collections from an export blob.
func (s *Service) Import(data []byte) error {
	payload, err := stores.ParseImport(data)
	if err != nil {
		return err
	}

	s.store.Dispatch(state.ImportData{Tasks: payload.Tasks, Projects: payload.Projects})
	s.log.Info().Int("tasks", len(payload.Tasks)).Int("projects", len(payload.Projects)).Msg("data imported")
	return nil
}

func (s *Service) projectExists(id string) bool {
	for _, p := range s.store.State().Projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) scheduleSync() {
	if s.sync != nil {
		s.sync.ScheduleUpload()
	}
}
