package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskflow/internal/core/config"
	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
)

type noticeRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (n *noticeRecorder) record(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *noticeRecorder) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func newTestSyncer(t *testing.T, handler http.Handler) (*Syncer, *state.Store, *noticeRecorder) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := state.NewStore(state.Default(time.Now()))
	notices := &noticeRecorder{}

	cfg := config.DefaultConfig().Sync
	cfg.APIURL = srv.URL
	cfg.AutoSyncDelay = 10 * time.Millisecond

	s := NewSyncer(store, nil, cfg, notices.record)
	s.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return s, store, notices
}

func connect(store *state.Store) {
	store.Dispatch(state.SetGitHubConnection{
		Token:    "secret-token-1234",
		Username: "octocat",
		Repositories: []state.Repo{
			{ID: 1, Name: "notes", FullName: "octocat/notes", Private: true},
		},
	})
	store.Dispatch(state.SelectGitHubRepo{Name: "octocat/notes"})
}

func TestSyncer_Connect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Repo{
			{ID: 1, Name: "notes", FullName: "octocat/notes", Private: true},
			{ID: 2, Name: "infra", FullName: "acme/infra", Private: true},
		})
	})

	s, store, _ := newTestSyncer(t, mux)
	s.cfg.RepoFilters = []string{"octocat/*"}

	require.NoError(t, s.Connect(context.Background(), "secret-token-1234"))

	st := store.State()
	assert.True(t, st.GitHub.IsConnected)
	assert.Equal(t, "octocat", st.GitHub.Username)
	require.Len(t, st.GitHub.Repositories, 1)
	assert.Equal(t, "octocat/notes", st.GitHub.Repositories[0].FullName)

	// A repository is never chosen for the user.
	assert.Empty(t, st.GitHub.SelectedRepo)
}

func TestSyncer_Connect_ShortToken(t *testing.T) {
	s, store, _ := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("short token must be rejected before any network call")
	}))

	err := s.Connect(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrTokenLength)
	assert.False(t, store.State().GitHub.IsConnected)
}

func TestSyncer_Connect_Unauthorized(t *testing.T) {
	s, store, _ := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := s.Connect(context.Background(), "expired-token-00")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, store.State().GitHub.IsConnected)
}

func TestSyncer_Connect_Timeout(t *testing.T) {
	s, store, _ := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	s.newClient = func(token string) *Client {
		return NewClient(s.cfg.APIURL, token, Timeouts{
			User: 20 * time.Millisecond,
			Repo: 20 * time.Millisecond,
			File: 20 * time.Millisecond,
		})
	}

	err := s.Connect(context.Background(), "secret-token-1234")
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "a hung endpoint must surface as a timeout")
	assert.Contains(t, err.Error(), "check your connection")
	assert.False(t, store.State().GitHub.IsConnected)
}

func TestSyncer_ImportCheck_NotFound(t *testing.T) {
	s, store, notices := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	connect(store)
	store.Dispatch(state.SetSyncStatus{Patch: state.SyncStatusPatch{Error: task.Ptr("stale error")}})
	store.Dispatch(state.CreateTask{Task: task.New("keep me", "", task.DefaultProjectID, task.PriorityMedium, time.Now())})

	require.NoError(t, s.ImportCheck(context.Background()))

	st := store.State()
	assert.Empty(t, st.GitHub.SyncStatus.Error, "a fresh repository clears standing errors")
	assert.Len(t, st.Tasks, 1, "missing remote snapshot must not touch local data")
	assert.Empty(t, notices.all())
}

func TestSyncer_ImportCheck_ImportsRemoteData(t *testing.T) {
	now := time.Now()
	payload, err := json.Marshal(map[string]any{
		"tasks":    []task.Task{task.New("remote task", "", task.DefaultProjectID, task.PriorityMedium, now)},
		"projects": []task.Project{task.DefaultProject(now)},
	})
	require.NoError(t, err)

	s, store, notices := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/notes/contents/Task_details.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"content": base64.StdEncoding.EncodeToString(payload),
			"sha":     "abc123",
		})
	}))
	connect(store)

	require.NoError(t, s.ImportCheck(context.Background()))

	st := store.State()
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, "remote task", st.Tasks[0].Title)
	assert.Empty(t, st.GitHub.SyncStatus.Error)
	assert.NotEmpty(t, notices.all())
}

func TestSyncer_ImportCheck_RejectsInvalidPayload(t *testing.T) {
	// Tasks present, projects absent: rejected wholesale.
	payload := []byte(`{"tasks": []}`)

	s, store, _ := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"content": base64.StdEncoding.EncodeToString(payload),
			"sha":     "abc123",
		})
	}))
	connect(store)
	store.Dispatch(state.CreateTask{Task: task.New("keep me", "", task.DefaultProjectID, task.PriorityMedium, time.Now())})

	require.NoError(t, s.ImportCheck(context.Background()))

	st := store.State()
	assert.Len(t, st.Tasks, 1, "invalid import must not touch local data")
	assert.NotEmpty(t, st.GitHub.SyncStatus.Error)
}

func TestSyncer_Upload_NotConnected(t *testing.T) {
	var calls atomic.Int32
	s, _, notices := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	err := s.Upload(context.Background(), true)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, calls.Load(), "no network traffic while disconnected")
	assert.NotEmpty(t, notices.all())
}

func TestSyncer_Upload_Success(t *testing.T) {
	var putBody struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/notes/contents/Task_details.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]string{
				"content": base64.StdEncoding.EncodeToString([]byte("{}")),
				"sha":     "old-sha",
			})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]string{"sha": "new-sha"},
			})
		}
	})

	s, store, notices := newTestSyncer(t, mux)
	connect(store)

	require.NoError(t, s.Upload(context.Background(), true))

	assert.Equal(t, "Update TaskFlow data - 2024-03-15 10:30:00", putBody.Message)
	assert.Equal(t, "old-sha", putBody.SHA, "existing file is replaced under its version token")

	uploaded, err := base64.StdEncoding.DecodeString(putBody.Content)
	require.NoError(t, err)
	assert.NotContains(t, string(uploaded), "secret-token-1234", "token must be redacted before upload")

	st := store.State()
	assert.False(t, st.GitHub.SyncStatus.IsLoading)
	assert.Empty(t, st.GitHub.SyncStatus.Error)
	require.NotNil(t, st.GitHub.SyncStatus.LastSync)
	assert.Equal(t, s.now(), *st.GitHub.SyncStatus.LastSync)

	// The token stays in local state.
	assert.Equal(t, "secret-token-1234", st.GitHub.Token)
	assert.NotEmpty(t, notices.all())
}

func TestSyncer_Upload_Conflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/notes/contents/Task_details.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			w.WriteHeader(http.StatusConflict)
		}
	})

	s, store, _ := newTestSyncer(t, mux)
	connect(store)
	store.Dispatch(state.CreateTask{Task: task.New("local work", "", task.DefaultProjectID, task.PriorityMedium, time.Now())})

	err := s.Upload(context.Background(), false)
	assert.ErrorIs(t, err, ErrConflict)

	st := store.State()
	assert.False(t, st.GitHub.SyncStatus.IsLoading)
	assert.Contains(t, st.GitHub.SyncStatus.Error, "conflict")
	assert.Len(t, st.Tasks, 1, "local state survives a conflict untouched")
}

func TestSyncer_Upload_UnauthorizedResetsConnection(t *testing.T) {
	s, store, _ := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	connect(store)

	err := s.Upload(context.Background(), false)
	assert.ErrorIs(t, err, ErrUnauthorized)

	st := store.State()
	assert.False(t, st.GitHub.IsConnected)
	assert.Contains(t, st.GitHub.SyncStatus.Error, "authentication failed",
		"remediation message survives the connection reset")
	assert.False(t, st.GitHub.SyncStatus.IsLoading)
}

func TestSyncer_Upload_RejectsConcurrent(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var puts atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/notes/contents/Task_details.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			close(started)
			<-release
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			puts.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]string{"sha": "new-sha"},
			})
		}
	})

	s, store, _ := newTestSyncer(t, mux)
	connect(store)

	done := make(chan error, 1)
	go func() { done <- s.Upload(context.Background(), false) }()
	<-started

	// Second upload while the first is mid-flight is rejected, not queued.
	assert.ErrorIs(t, s.Upload(context.Background(), false), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), puts.Load())
}

func TestSyncer_ScheduleUpload(t *testing.T) {
	var puts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/notes/contents/Task_details.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			puts.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]string{"sha": "new-sha"},
			})
		}
	})

	s, store, notices := newTestSyncer(t, mux)
	connect(store)

	s.ScheduleUpload()
	require.Eventually(t, func() bool { return puts.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Background sync stays quiet.
	assert.Empty(t, notices.all())
}
