package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/colonyops/taskflow/internal/core/task"
	"github.com/colonyops/taskflow/internal/data/stores"
	"github.com/colonyops/taskflow/internal/sync/github"
	"github.com/colonyops/taskflow/internal/taskflow"
)

// maxImportSize bounds an uploaded export blob.
const maxImportSize = 10 << 20 // 10MB

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.svc.State(),
	})
}

// Tasks

type taskRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ProjectID     string        `json:"projectId"`
	Priority      task.Priority `json:"priority"`
	DueDate       *time.Time    `json:"dueDate"`
	EstimatedTime int           `json:"estimatedTime"`
	Tags          []string      `json:"tags"`
}

func (r taskRequest) params() taskflow.TaskParams {
	return taskflow.TaskParams{
		Title:         r.Title,
		Description:   r.Description,
		ProjectID:     r.ProjectID,
		Priority:      r.Priority,
		DueDate:       r.DueDate,
		EstimatedTime: r.EstimatedTime,
		Tags:          r.Tags,
	}
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := s.svc.CreateTask(req.params())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

func (s *Server) handleCreateSubtask(c *gin.Context) {
	var req taskRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := s.svc.CreateSubtask(c.Param("id"), req.params())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

// taskPatchRequest uses pointers so an absent field and a zero value are
// distinguishable.
type taskPatchRequest struct {
	Title         *string        `json:"title"`
	Description   *string        `json:"description"`
	ProjectID     *string        `json:"projectId"`
	Priority      *task.Priority `json:"priority"`
	Status        *task.Status   `json:"status"`
	DueDate       *time.Time     `json:"dueDate"`
	EstimatedTime *int           `json:"estimatedTime"`
	ActualTime    *int           `json:"actualTime"`
	Tags          *[]string      `json:"tags"`
}

func (r taskPatchRequest) patch() (task.Patch, error) {
	if r.Status != nil && !r.Status.Valid() {
		return task.Patch{}, fmt.Errorf("invalid status %q", *r.Status)
	}
	return task.Patch{
		Title:         r.Title,
		Description:   r.Description,
		ProjectID:     r.ProjectID,
		Priority:      r.Priority,
		Status:        r.Status,
		DueDate:       r.DueDate,
		EstimatedTime: r.EstimatedTime,
		ActualTime:    r.ActualTime,
		Tags:          r.Tags,
	}, nil
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskPatchRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := s.svc.UpdateTask(c.Param("id"), patch); err != nil {
		fail(c, err)
		return
	}

	ok(c, "task updated")
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.svc.DeleteTask(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "task deleted")
}

func (s *Server) handleToggleComplete(c *gin.Context) {
	if err := s.svc.ToggleComplete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "task toggled")
}

// Timer

type timerRequest struct {
	TaskID string `json:"taskId"`
}

func (s *Server) handleStartTimer(c *gin.Context) {
	var req timerRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.svc.StartTimer(req.TaskID); err != nil {
		fail(c, err)
		return
	}
	ok(c, "timer started")
}

func (s *Server) handlePauseTimer(c *gin.Context) {
	s.svc.PauseTimer()
	ok(c, "timer paused")
}

func (s *Server) handleResumeTimer(c *gin.Context) {
	var req timerRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s.svc.ResumeTimer(req.TaskID)
	ok(c, "timer resumed")
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	var req timerRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.svc.CompleteTask(req.TaskID); err != nil {
		fail(c, err)
		return
	}
	ok(c, "task completed")
}

func (s *Server) handleCancelTask(c *gin.Context) {
	var req timerRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.svc.CancelTask(req.TaskID); err != nil {
		fail(c, err)
		return
	}
	ok(c, "task cancelled")
}

// Projects

type projectRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := s.svc.CreateProject(req.Name, req.Color)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

type projectPatchRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var req projectPatchRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := s.svc.UpdateProject(c.Param("id"), task.ProjectPatch{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "project updated")
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.svc.DeleteProject(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "project deleted")
}

// Export / import

func (s *Server) handleExport(c *gin.Context) {
	data, name, err := s.svc.Export()
	if err != nil {
		internalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleImport(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := s.svc.Import(data); err != nil {
		badRequest(c, err)
		return
	}
	ok(c, "data imported")
}

// Remote sync

type connectRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleGitHubConnect(c *gin.Context) {
	if s.syncer == nil {
		syncDisabled(c)
		return
	}

	var req connectRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.syncer.Connect(c.Request.Context(), req.Token); err != nil {
		fail(c, err)
		return
	}
	ok(c, "connected")
}

func (s *Server) handleGitHubDisconnect(c *gin.Context) {
	if s.syncer == nil {
		syncDisabled(c)
		return
	}

	s.syncer.Disconnect()
	ok(c, "disconnected")
}

func (s *Server) handleGitHubRepos(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.svc.State().GitHub.Repositories,
	})
}

type selectRepoRequest struct {
	Repo string `json:"repo"`
}

func (s *Server) handleGitHubSelect(c *gin.Context) {
	if s.syncer == nil {
		syncDisabled(c)
		return
	}

	var req selectRepoRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.syncer.SelectRepo(c.Request.Context(), req.Repo); err != nil {
		fail(c, err)
		return
	}
	ok(c, "repository selected")
}

func (s *Server) handleGitHubSync(c *gin.Context) {
	if s.syncer == nil {
		syncDisabled(c)
		return
	}

	// Explicit user action: the outcome is always announced.
	if err := s.syncer.Upload(c.Request.Context(), true); err != nil {
		fail(c, err)
		return
	}
	ok(c, "synced")
}

func (s *Server) handleSyncJournal(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    []stores.JournalEntry{},
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := s.journal.List(c.Request.Context(), limit)
	if err != nil {
		internalError(c, err)
		return
	}
	if entries == nil {
		entries = []stores.JournalEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}

// Analytics

func (s *Server) handleTimeEntries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.svc.TimeEntries(),
	})
}

func (s *Server) handleTasksForDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		badRequest(c, fmt.Errorf("date must be yyyy-mm-dd: %w", err))
		return
	}

	tasks := s.svc.TasksForDate(date)
	if tasks == nil {
		tasks = []task.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
	})
}

func (s *Server) handleStatusCounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.svc.StatusCounts(),
	})
}

// Response helpers

func ok(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func syncDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"error":   "remote sync is disabled",
	})
}

// fail maps service and sync errors to status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, taskflow.ErrTaskNotFound),
		errors.Is(err, taskflow.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, taskflow.ErrProjectNotDeletable),
		errors.Is(err, github.ErrBusy),
		errors.Is(err, github.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, taskflow.ErrTitleRequired),
		errors.Is(err, taskflow.ErrProjectNameRequired),
		errors.Is(err, taskflow.ErrInvalidPriority),
		errors.Is(err, stores.ErrInvalidImport),
		errors.Is(err, github.ErrTokenLength),
		errors.Is(err, github.ErrNotConnected):
		status = http.StatusBadRequest
	case errors.Is(err, github.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, github.ErrForbidden):
		status = http.StatusForbidden
	case github.IsTimeout(err):
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
