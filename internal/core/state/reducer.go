package state

import (
	"github.com/colonyops/taskflow/internal/core/task"
)

// Reduce maps (state, action) to a new state. It is pure: the input state is
// never mutated, and unknown actions return it unchanged.
func Reduce(s AppState, action Action) AppState {
	switch a := action.(type) {
	case CreateTask:
		s.Tasks = append(append([]task.Task{}, s.Tasks...), a.Task)
		return s

	case UpdateTask:
		s.Tasks = task.UpdateByID(s.Tasks, a.ID, a.Patch)
		return s

	case DeleteTask:
		s.Tasks = task.DeleteByID(s.Tasks, a.ID)
		return s

	case CreateProject:
		s.Projects = append(append([]task.Project{}, s.Projects...), a.Project)
		return s

	case UpdateProject:
		projects := make([]task.Project, len(s.Projects))
		for i, p := range s.Projects {
			if p.ID == a.ID {
				p = a.Patch.Apply(p)
			}
			projects[i] = p
		}
		s.Projects = projects
		return s

	case DeleteProject:
		projects := make([]task.Project, 0, len(s.Projects))
		for _, p := range s.Projects {
			if p.ID != a.ID {
				projects = append(projects, p)
			}
		}
		// Cascade removes top-level tasks only. Subtasks of surviving tasks
		// keep their projectId; current behavior, kept deliberately.
		tasks := make([]task.Task, 0, len(s.Tasks))
		for _, t := range s.Tasks {
			if t.ProjectID != a.ID {
				tasks = append(tasks, t)
			}
		}
		s.Projects = projects
		s.Tasks = tasks
		return s

	case SetTimer:
		s.Timer = applyTimerPatch(s.Timer, a.Patch)
		return s

	case PauseTimer:
		if !s.Timer.IsRunning || s.Timer.CurrentTaskID == "" {
			return s
		}
		timer := s.Timer
		timer.PausedTasks = clonePausedTasks(timer.PausedTasks)
		timer.PausedTasks[timer.CurrentTaskID] = PausedTask{
			ElapsedTime: timer.ElapsedTime,
			PausedAt:    a.Now,
		}
		timer.IsRunning = false
		timer.IsPaused = true
		s.Timer = timer
		return s

	case ResumeTimer:
		snap, ok := s.Timer.PausedTasks[a.TaskID]
		if !ok {
			return s
		}
		timer := s.Timer
		timer.PausedTasks = clonePausedTasks(timer.PausedTasks)
		delete(timer.PausedTasks, a.TaskID)
		now := a.Now
		timer.CurrentTaskID = a.TaskID
		timer.ElapsedTime = snap.ElapsedTime
		timer.StartTime = &now
		// Elapsed continues from the snapshot: carry it as the ms offset.
		timer.PausedTime = int64(snap.ElapsedTime) * 1000
		timer.IsRunning = true
		timer.IsPaused = false
		s.Timer = timer
		return s

	case TickTimer:
		if !s.Timer.IsRunning || s.Timer.StartTime == nil {
			return s
		}
		timer := s.Timer
		elapsedMs := a.Now.Sub(*timer.StartTime).Milliseconds() + timer.PausedTime
		timer.ElapsedTime = int(elapsedMs / 1000)
		s.Timer = timer
		return s

	case CheckOverdueTasks:
		// Scans top-level tasks only; current behavior, kept deliberately.
		tasks := make([]task.Task, len(s.Tasks))
		for i, t := range s.Tasks {
			if t.Status == task.StatusActive && t.DueDate != nil && a.Now.After(*t.DueDate) && !t.IsOverdue {
				overdueAt := a.Now
				t.Status = task.StatusOverdue
				t.IsOverdue = true
				t.OverdueAt = &overdueAt
			}
			tasks[i] = t
		}
		s.Tasks = tasks
		return s

	case SetSelectedProject:
		s.SelectedProject = a.ID
		return s

	case SetSearchQuery:
		s.SearchQuery = a.Query
		return s

	case SetFilterPriority:
		s.FilterPriority = a.Priority
		return s

	case SetFilterStatus:
		s.FilterStatus = a.Status
		return s

	case SetSelectedDate:
		s.SelectedDate = a.Date
		return s

	case SetViewMode:
		s.ViewMode = a.Mode
		return s

	case ToggleSidebar:
		s.SidebarCollapsed = !s.SidebarCollapsed
		return s

	case ToggleFocusMode:
		s.FocusMode = !s.FocusMode
		return s

	case LoadState:
		return a.State

	case ImportData:
		s.Tasks = a.Tasks
		s.Projects = a.Projects
		return s

	case SetGitHubConnection:
		s.GitHub = GitHubState{
			IsConnected:  true,
			Token:        a.Token,
			Username:     a.Username,
			SelectedRepo: "", // user must choose explicitly
			Repositories: a.Repositories,
			SyncStatus:   s.GitHub.SyncStatus,
		}
		return s

	case DisconnectGitHub:
		s.GitHub = GitHubState{Repositories: []Repo{}}
		return s

	case SelectGitHubRepo:
		github := s.GitHub
		github.SelectedRepo = a.Name
		s.GitHub = github
		return s

	case SetSyncStatus:
		github := s.GitHub
		if a.Patch.IsLoading != nil {
			github.SyncStatus.IsLoading = *a.Patch.IsLoading
		}
		if a.Patch.LastSync != nil {
			github.SyncStatus.LastSync = *a.Patch.LastSync
		}
		if a.Patch.Error != nil {
			github.SyncStatus.Error = *a.Patch.Error
		}
		s.GitHub = github
		return s

	default:
		return s
	}
}

func applyTimerPatch(t TimerState, p TimerPatch) TimerState {
	if p.IsRunning != nil {
		t.IsRunning = *p.IsRunning
	}
	if p.IsPaused != nil {
		t.IsPaused = *p.IsPaused
	}
	if p.CurrentTaskID != nil {
		t.CurrentTaskID = *p.CurrentTaskID
	}
	if p.ElapsedTime != nil {
		t.ElapsedTime = *p.ElapsedTime
	}
	if p.StartTime != nil {
		t.StartTime = *p.StartTime
	}
	if p.PausedTime != nil {
		t.PausedTime = *p.PausedTime
	}
	if p.TaskStartTime != nil {
		t.TaskStartTime = *p.TaskStartTime
	}
	return t
}
