// Package task defines the task and project domain model and the pure
// tree utilities that operate on the recursive task/subtask forest.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency bucket of a task.
type Priority string

// Supported priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the lifecycle state of a task.
type Status string

// Task lifecycle states.
const (
	StatusTodo      Status = "todo"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusActive, StatusPaused, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// Task is one unit of work. Subtasks are owned by their parent; ParentID is
// informational only and never used for traversal.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ProjectID     string     `json:"projectId"`
	Priority      Priority   `json:"priority"`
	Status        Status     `json:"status"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	EstimatedTime int        `json:"estimatedTime"` // minutes
	ActualTime    int        `json:"actualTime"`    // minutes
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	OverdueAt     *time.Time `json:"overdueAt,omitempty"`
	ParentID      string     `json:"parentId,omitempty"`
	Subtasks      []Task     `json:"subtasks"`
	Tags          []string   `json:"tags"`
	IsOverdue     bool       `json:"isOverdue"`
	PausedTime    int        `json:"pausedTime,omitempty"` // seconds
	LastPausedAt  *time.Time `json:"lastPausedAt,omitempty"`
}

// Project is a named, colored grouping of tasks. The counter fields are
// display hints maintained opportunistically; core logic never reads them.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Color          string    `json:"color"`
	TaskCount      int       `json:"taskCount"`
	CompletedCount int       `json:"completedCount"`
	TotalTime      int       `json:"totalTime"`
	CreatedAt      time.Time `json:"createdAt"`
	IsDeletable    bool      `json:"isDeletable"`
}

// DefaultProjectID is the id of the bootstrap project that always exists and
// can never be deleted.
const DefaultProjectID = "miscellaneous"

// DefaultProject returns the bootstrap project present in initial state.
func DefaultProject(now time.Time) Project {
	return Project{
		ID:          DefaultProjectID,
		Name:        "Miscellaneous",
		Color:       "#10B981",
		CreatedAt:   now,
		IsDeletable: false,
	}
}

// New creates a top-level task with a fresh id and creation timestamp.
func New(title, description, projectID string, priority Priority, now time.Time) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		ProjectID:   projectID,
		Priority:    priority,
		Status:      StatusTodo,
		CreatedAt:   now,
		Subtasks:    []Task{},
		Tags:        []string{},
	}
}

// NewSubtask creates a child task bound to the given parent.
func NewSubtask(parentID, title, description, projectID string, priority Priority, now time.Time) Task {
	t := New(title, description, projectID, priority, now)
	t.ParentID = parentID
	return t
}

// NewProject creates a user project. User projects are always deletable.
func NewProject(name, color string, now time.Time) Project {
	return Project{
		ID:          uuid.NewString(),
		Name:        name,
		Color:       color,
		CreatedAt:   now,
		IsDeletable: true,
	}
}

// Patch is a partial task update. Nil fields are left untouched; set fields
// replace the current value wholesale.
type Patch struct {
	Title         *string
	Description   *string
	ProjectID     *string
	Priority      *Priority
	Status        *Status
	DueDate       *time.Time
	EstimatedTime *int
	ActualTime    *int
	CompletedAt   *time.Time
	OverdueAt     *time.Time
	Tags          *[]string
	IsOverdue     *bool
	PausedTime    *int
	LastPausedAt  *time.Time
}

// Apply merges the patch into a copy of t and returns it.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.EstimatedTime != nil {
		t.EstimatedTime = *p.EstimatedTime
	}
	if p.ActualTime != nil {
		t.ActualTime = *p.ActualTime
	}
	if p.CompletedAt != nil {
		t.CompletedAt = p.CompletedAt
	}
	if p.OverdueAt != nil {
		t.OverdueAt = p.OverdueAt
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.IsOverdue != nil {
		t.IsOverdue = *p.IsOverdue
	}
	if p.PausedTime != nil {
		t.PausedTime = *p.PausedTime
	}
	if p.LastPausedAt != nil {
		t.LastPausedAt = p.LastPausedAt
	}
	return t
}

// ProjectPatch is a partial project update.
type ProjectPatch struct {
	Name           *string
	Color          *string
	TaskCount      *int
	CompletedCount *int
	TotalTime      *int
}

// Apply merges the patch into a copy of p and returns it.
func (pp ProjectPatch) Apply(p Project) Project {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Color != nil {
		p.Color = *pp.Color
	}
	if pp.TaskCount != nil {
		p.TaskCount = *pp.TaskCount
	}
	if pp.CompletedCount != nil {
		p.CompletedCount = *pp.CompletedCount
	}
	if pp.TotalTime != nil {
		p.TotalTime = *pp.TotalTime
	}
	return p
}

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T { return &v }
