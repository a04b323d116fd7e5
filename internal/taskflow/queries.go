package taskflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/colonyops/taskflow/internal/core/task"
)

// TimeEntry is a derived analytics record: one entry per top-level task that
// has banked time. Entries are synthesized on read, never stored.
type TimeEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int       `json:"duration"` // minutes
	Date      string    `json:"date"`     // yyyy-mm-dd of creation
}

// TimeEntries returns one entry per top-level task with recorded work.
// Subtasks do not contribute entries of their own.
func (s *Service) TimeEntries() []TimeEntry {
	st := s.store.State()
	entries := make([]TimeEntry, 0, len(st.Tasks))
	for _, t := range st.Tasks {
		if t.ActualTime <= 0 {
			continue
		}
		end := s.now()
		if t.CompletedAt != nil {
			end = *t.CompletedAt
		}
		entries = append(entries, TimeEntry{
			ID:        uuid.NewString(),
			TaskID:    t.ID,
			StartTime: t.CreatedAt,
			EndTime:   end,
			Duration:  t.ActualTime,
			Date:      t.CreatedAt.Format("2006-01-02"),
		})
	}
	return entries
}

// TasksForDate returns every task (subtasks included) completed on the given
// calendar day.
func (s *Service) TasksForDate(date time.Time) []task.Task {
	day := date.Format("2006-01-02")

	var out []task.Task
	for _, t := range task.Flatten(s.store.State().Tasks) {
		if t.CompletedAt != nil && t.CompletedAt.Format("2006-01-02") == day {
			out = append(out, t)
		}
	}
	return out
}

// StatusCounts tallies every task in the forest by lifecycle state.
func (s *Service) StatusCounts() map[task.Status]int {
	counts := make(map[task.Status]int)
	for _, t := range task.Flatten(s.store.State().Tasks) {
		counts[t.Status]++
	}
	return counts
}
