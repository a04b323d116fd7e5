package stores

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/colonyops/taskflow/internal/core/logging"
	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
)

// SnapshotFile is the name of the local state snapshot inside the data dir.
const SnapshotFile = "taskflow.json"

// SnapshotStore persists the whole AppState as one JSON document. Instants
// are ISO-8601 strings on disk and time.Time values in memory; encoding/json
// handles the conversion in both directions.
type SnapshotStore struct {
	path string
	mu   sync.Mutex
}

// NewSnapshotStore creates a snapshot store rooted in the data directory.
func NewSnapshotStore(dataDir string) *SnapshotStore {
	return &SnapshotStore{path: filepath.Join(dataDir, SnapshotFile)}
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string { return s.path }

// Load restores the persisted state. A missing or malformed snapshot is not
// an error: found is false and the caller falls back to the bootstrap
// default (malformed files are logged and skipped).
func (s *SnapshotStore) Load() (st state.AppState, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state.AppState{}, false, nil
		}
		return state.AppState{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		log := logging.Component("stores")
		log.Warn().Err(err).Str("path", s.path).Msg("malformed snapshot ignored")
		return state.AppState{}, false, nil
	}

	normalize(&st)
	return st, true, nil
}

// Save writes the state atomically via a temp file rename.
func (s *SnapshotStore) Save(st state.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return os.Rename(tmp, s.path)
}

// ExportFilename returns the artifact name for a user-initiated export.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("taskflow-export-%s.json", now.Format("2006-01-02"))
}

// Export serializes the full state, token included. Export is a local,
// user-initiated action; remote sync is what redacts the token.
func Export(st state.AppState) ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// ImportPayload is the subset of an export accepted by import: both
// collections must be present or the payload is rejected wholesale.
type ImportPayload struct {
	Tasks    []task.Task    `json:"tasks"`
	Projects []task.Project `json:"projects"`
}

// ParseImport validates an externally supplied JSON blob. Returns
// ErrInvalidImport when either collection is absent.
func ParseImport(data []byte) (ImportPayload, error) {
	// Probe with raw messages first so "absent" and "empty" are distinct.
	var probe struct {
		Tasks    json.RawMessage `json:"tasks"`
		Projects json.RawMessage `json:"projects"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ImportPayload{}, fmt.Errorf("parse import: %w", err)
	}
	if probe.Tasks == nil || probe.Projects == nil {
		return ImportPayload{}, ErrInvalidImport
	}

	var payload ImportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ImportPayload{}, fmt.Errorf("parse import: %w", err)
	}
	return payload, nil
}

// normalize repairs nil collections left behind by hand-edited or
// older snapshots so downstream code can assume non-nil containers.
func normalize(st *state.AppState) {
	if st.Tasks == nil {
		st.Tasks = []task.Task{}
	}
	if st.Projects == nil {
		st.Projects = []task.Project{}
	}
	if st.Timer.PausedTasks == nil {
		st.Timer.PausedTasks = map[string]state.PausedTask{}
	}
	if st.GitHub.Repositories == nil {
		st.GitHub.Repositories = []state.Repo{}
	}
}
