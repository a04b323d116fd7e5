package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskflow/internal/core/config"
	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
	"github.com/colonyops/taskflow/internal/core/timer"
	"github.com/colonyops/taskflow/internal/sync/github"
	"github.com/colonyops/taskflow/internal/taskflow"
)

func newTestServer(t *testing.T) (*Server, *state.Store) {
	t.Helper()

	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	store := state.NewStore(state.Default(now))
	clock := func() time.Time { return now }

	svc := taskflow.NewService(store, timer.New(store, clock), nil, clock)
	return NewServer(svc, nil, nil), store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandleState(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	assert.Len(t, data["projects"], 1)
}

func TestHandleCreateTask(t *testing.T) {
	s, store := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/tasks", h{
		"title":    "write report",
		"priority": "high",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	st := store.State()
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, "write report", st.Tasks[0].Title)
	assert.Equal(t, task.PriorityHigh, st.Tasks[0].Priority)
}

func TestHandleCreateTask_MissingTitle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/tasks", h{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestHandleCreateSubtask(t *testing.T) {
	s, store := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/tasks", h{"title": "parent"})
	require.Equal(t, http.StatusCreated, w.Code)
	parentID := store.State().Tasks[0].ID

	w = doJSON(t, s, http.MethodPost, "/api/tasks/"+parentID+"/subtasks", h{"title": "child"})
	require.Equal(t, http.StatusCreated, w.Code)

	st := store.State()
	require.Len(t, st.Tasks[0].Subtasks, 1)
	assert.Equal(t, "child", st.Tasks[0].Subtasks[0].Title)
}

func TestHandleUpdateTask(t *testing.T) {
	s, store := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/tasks", h{"title": "draft"})
	id := store.State().Tasks[0].ID

	w := doJSON(t, s, http.MethodPatch, "/api/tasks/"+id, h{"title": "final"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "final", store.State().Tasks[0].Title)

	w = doJSON(t, s, http.MethodPatch, "/api/tasks/"+id, h{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPatch, "/api/tasks/ghost", h{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteTask(t *testing.T) {
	s, store := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/tasks", h{"title": "doomed"})
	id := store.State().Tasks[0].ID

	w := doJSON(t, s, http.MethodDelete, "/api/tasks/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.State().Tasks)

	w = doJSON(t, s, http.MethodDelete, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleTimerRoutes(t *testing.T) {
	s, store := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/tasks", h{"title": "focus"})
	id := store.State().Tasks[0].ID

	w := doJSON(t, s, http.MethodPost, "/api/timer/start", h{"taskId": id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.State().Timer.IsRunning)

	w = doJSON(t, s, http.MethodPost, "/api/timer/complete", h{"taskId": id})
	require.Equal(t, http.StatusOK, w.Code)

	st := store.State()
	assert.False(t, st.Timer.IsRunning)
	assert.Equal(t, task.StatusCompleted, st.Tasks[0].Status)
}

func TestHandleProjectRoutes(t *testing.T) {
	s, store := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/projects", h{"name": "Work", "color": "#3B82F6"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.State().Projects, 2)

	// The bootstrap project is not deletable.
	w = doJSON(t, s, http.MethodDelete, "/api/projects/"+task.DefaultProjectID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleExportImport(t *testing.T) {
	s, store := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/tasks", h{"title": "keep"})

	w := doJSON(t, s, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "taskflow-export-2024-03-15.json")
	exported := w.Body.Bytes()

	// Wipe, then restore through import.
	store.Dispatch(state.ImportData{Tasks: []task.Task{}, Projects: []task.Project{}})

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.State().Tasks, 1)
	assert.Equal(t, "keep", store.State().Tasks[0].Title)
}

func TestHandleImport_RejectsPartialPayload(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader([]byte(`{"tasks": []}`)))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRoutes_DisabledWithoutSyncer(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/github/connect", h{"token": "secret-token-1234"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/github/sync", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The journal route degrades to an empty list instead.
	w = doJSON(t, s, http.MethodGet, "/api/sync/journal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])
}

func TestHandleGitHubSync_ExplicitActionNotifies(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	store := state.NewStore(state.Default(now))
	clock := func() time.Time { return now }

	var notices []string
	syncer := github.NewSyncer(store, nil, config.DefaultConfig().Sync, func(msg string) {
		notices = append(notices, msg)
	})
	svc := taskflow.NewService(store, timer.New(store, clock), nil, clock)
	s := NewServer(svc, syncer, nil)

	w := doJSON(t, s, http.MethodPost, "/api/github/sync", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, notices, "user-initiated sync always reports its outcome")
}

func TestFail_TimeoutMapsToGatewayTimeout(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	fail(c, fmt.Errorf("connect: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	s, store := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/tasks", h{"title": "tracked"})
	id := store.State().Tasks[0].ID
	doJSON(t, s, http.MethodPatch, "/api/tasks/"+id, h{"actualTime": 25})

	w := doJSON(t, s, http.MethodGet, "/api/analytics/time-entries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = doJSON(t, s, http.MethodGet, "/api/analytics/status-counts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/analytics/tasks-for-date?date=2024-03-15", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/analytics/tasks-for-date?date=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// h is shorthand for request bodies.
type h = map[string]any
