package taskflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskflow/internal/core/task"
)

func TestService_TimeEntries(t *testing.T) {
	svc, _, _ := newTestService(t)

	worked, err := svc.CreateTask(TaskParams{Title: "worked"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateTask(worked.ID, task.Patch{ActualTime: task.Ptr(45)}))

	_, err = svc.CreateTask(TaskParams{Title: "untouched"})
	require.NoError(t, err)

	entries := svc.TimeEntries()
	require.Len(t, entries, 1, "only tasks with banked time produce entries")
	assert.Equal(t, worked.ID, entries[0].TaskID)
	assert.Equal(t, 45, entries[0].Duration)
	assert.Equal(t, "2024-03-15", entries[0].Date)
	// Open task: the entry ends now.
	assert.Equal(t, svc.now(), entries[0].EndTime)
}

func TestService_TimeEntries_CompletedTaskEndsAtCompletion(t *testing.T) {
	svc, _, _ := newTestService(t)

	done := time.Date(2024, 3, 16, 17, 0, 0, 0, time.UTC)
	created, err := svc.CreateTask(TaskParams{Title: "done"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateTask(created.ID, task.Patch{
		ActualTime:  task.Ptr(30),
		CompletedAt: &done,
	}))

	entries := svc.TimeEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, done, entries[0].EndTime)
}

func TestService_TasksForDate(t *testing.T) {
	svc, _, _ := newTestService(t)

	day := time.Date(2024, 3, 16, 11, 0, 0, 0, time.UTC)
	otherDay := time.Date(2024, 3, 17, 11, 0, 0, 0, time.UTC)

	parent, err := svc.CreateTask(TaskParams{Title: "parent"})
	require.NoError(t, err)
	child, err := svc.CreateSubtask(parent.ID, TaskParams{Title: "child"})
	require.NoError(t, err)
	other, err := svc.CreateTask(TaskParams{Title: "other"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTask(child.ID, task.Patch{CompletedAt: &day}))
	require.NoError(t, svc.UpdateTask(other.ID, task.Patch{CompletedAt: &otherDay}))

	got := svc.TasksForDate(day)
	require.Len(t, got, 1, "subtasks count; other days do not")
	assert.Equal(t, child.ID, got[0].ID)

	assert.Empty(t, svc.TasksForDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestService_StatusCounts(t *testing.T) {
	svc, _, _ := newTestService(t)

	a, err := svc.CreateTask(TaskParams{Title: "a"})
	require.NoError(t, err)
	_, err = svc.CreateTask(TaskParams{Title: "b"})
	require.NoError(t, err)
	_, err = svc.CreateSubtask(a.ID, TaskParams{Title: "a1"})
	require.NoError(t, err)

	require.NoError(t, svc.ToggleComplete(a.ID))

	counts := svc.StatusCounts()
	assert.Equal(t, 2, counts[task.StatusTodo])
	assert.Equal(t, 1, counts[task.StatusCompleted])
}
