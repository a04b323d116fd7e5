// Package web serves the HTTP API consumed by the UI. It is a thin layer
// over the taskflow service; no business logic lives here.
package web

import (
	"github.com/gin-gonic/gin"

	"github.com/colonyops/taskflow/internal/data/stores"
	"github.com/colonyops/taskflow/internal/sync/github"
	"github.com/colonyops/taskflow/internal/taskflow"
)

// Server is the taskflow API server.
type Server struct {
	svc     *taskflow.Service
	syncer  *github.Syncer
	journal *stores.JournalStore
	router  *gin.Engine
}

// NewServer creates the API server. syncer and journal may be nil; their
// routes answer with a service-unavailable error.
func NewServer(svc *taskflow.Service, syncer *github.Syncer, journal *stores.JournalStore) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		svc:     svc,
		syncer:  syncer,
		journal: journal,
		router:  router,
	}

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)

		api.POST("/tasks", s.handleCreateTask)
		api.POST("/tasks/:id/subtasks", s.handleCreateSubtask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/toggle", s.handleToggleComplete)

		api.POST("/timer/start", s.handleStartTimer)
		api.POST("/timer/pause", s.handlePauseTimer)
		api.POST("/timer/resume", s.handleResumeTimer)
		api.POST("/timer/complete", s.handleCompleteTask)
		api.POST("/timer/cancel", s.handleCancelTask)

		api.POST("/projects", s.handleCreateProject)
		api.PATCH("/projects/:id", s.handleUpdateProject)
		api.DELETE("/projects/:id", s.handleDeleteProject)

		api.GET("/export", s.handleExport)
		api.POST("/import", s.handleImport)

		api.POST("/github/connect", s.handleGitHubConnect)
		api.POST("/github/disconnect", s.handleGitHubDisconnect)
		api.GET("/github/repos", s.handleGitHubRepos)
		api.POST("/github/select", s.handleGitHubSelect)
		api.POST("/github/sync", s.handleGitHubSync)
		api.GET("/sync/journal", s.handleSyncJournal)

		api.GET("/analytics/time-entries", s.handleTimeEntries)
		api.GET("/analytics/tasks-for-date", s.handleTasksForDate)
		api.GET("/analytics/status-counts", s.handleStatusCounts)
	}

	return s
}

// Run starts the server on the given address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
