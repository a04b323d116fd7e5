package github

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/colonyops/taskflow/internal/core/config"
	"github.com/colonyops/taskflow/internal/core/logging"
	"github.com/colonyops/taskflow/internal/core/state"
	"github.com/colonyops/taskflow/internal/core/task"
	"github.com/colonyops/taskflow/internal/data/stores"
)

// RemotePath is the well-known snapshot location inside the selected
// repository.
const RemotePath = "Task_details.json"

// minTokenLength rejects obviously truncated tokens before any network call.
const minTokenLength = 10

// Sentinel conditions surfaced by Upload and Connect.
var (
	ErrNotConnected = errors.New("not connected to a repository")
	ErrBusy         = errors.New("sync already in progress")
	ErrTokenLength  = errors.New("token is too short")
)

// Notifier delivers a user-facing message. Upload suppresses it for
// background auto-sync and keeps it for explicit user actions.
type Notifier func(msg string)

// Syncer drives the remote sync protocol against the state store. All its
// failures land in SyncStatus.Error; none of them reach the reducer or
// corrupt task data.
type Syncer struct {
	store   *state.Store
	journal *stores.JournalStore // optional
	cfg     config.SyncConfig
	notify  Notifier

	now       func() time.Time
	newClient func(token string) *Client
	uploading atomic.Bool
	log       zerolog.Logger
}

// NewSyncer creates a syncer. journal and notify may be nil.
func NewSyncer(store *state.Store, journal *stores.JournalStore, cfg config.SyncConfig, notify Notifier) *Syncer {
	s := &Syncer{
		store:   store,
		journal: journal,
		cfg:     cfg,
		notify:  notify,
		now:     time.Now,
		log:     logging.Component("sync"),
	}
	s.newClient = func(token string) *Client {
		return NewClient(cfg.APIURL, token, Timeouts{
			User: cfg.UserTimeout,
			Repo: cfg.RepoTimeout,
			File: cfg.FileTimeout,
		})
	}
	return s
}

// Connect validates the token against the remote API, lists the repositories
// it can reach, and records the connection. A repository is never selected
// automatically.
func (s *Syncer) Connect(ctx context.Context, token string) error {
	if len(token) < minTokenLength {
		s.record(ctx, stores.KindConnect, "", "rejected", "token too short")
		return ErrTokenLength
	}

	client := s.newClient(token)

	user, err := client.CurrentUser(ctx)
	if err != nil {
		s.record(ctx, stores.KindConnect, "", outcome(err), err.Error())
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("authenticate: %w", err)
		}
		if IsTimeout(err) {
			return fmt.Errorf("github did not answer in time, check your connection: %w", err)
		}
		return fmt.Errorf("connect: %w", err)
	}

	repos, err := client.ListRepos(ctx)
	if err != nil {
		s.record(ctx, stores.KindConnect, "", outcome(err), err.Error())
		if IsTimeout(err) {
			return fmt.Errorf("github did not answer in time, check your connection: %w", err)
		}
		return fmt.Errorf("list repositories: %w", err)
	}

	filtered := s.filterRepos(repos)

	s.store.Dispatch(state.SetGitHubConnection{
		Token:        token,
		Username:     user.Login,
		Repositories: filtered,
	})

	s.record(ctx, stores.KindConnect, "", "ok", fmt.Sprintf("user=%s repos=%d", user.Login, len(filtered)))
	s.log.Info().Str("user", user.Login).Int("repos", len(filtered)).Msg("connected")
	return nil
}

// Disconnect clears the whole connection block.
func (s *Syncer) Disconnect() {
	s.store.Dispatch(state.DisconnectGitHub{})
	s.log.Info().Msg("disconnected")
}

// SelectRepo records the repository selection and immediately checks it for
// existing data to import.
func (s *Syncer) SelectRepo(ctx context.Context, fullName string) error {
	s.store.Dispatch(state.SelectGitHubRepo{Name: fullName})
	return s.ImportCheck(ctx)
}

// ImportCheck fetches the remote snapshot from the selected repository and
// merges it in. A missing file is success with no data and clears any
// standing sync error. Other failures set SyncStatus.Error and are not
// returned; import must never break repository selection.
func (s *Syncer) ImportCheck(ctx context.Context) error {
	st := s.store.State()
	if st.GitHub.Token == "" || st.GitHub.SelectedRepo == "" {
		return nil
	}
	repo := st.GitHub.SelectedRepo
	ctx = logging.WithRepo(ctx, repo)

	client := s.newClient(st.GitHub.Token)

	file, err := client.GetFile(ctx, repo, RemotePath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Fresh repository. Clear any stale error.
			s.setError("")
			s.record(ctx, stores.KindImport, repo, "empty", "no remote snapshot")
			return nil
		}
		s.setError(s.failureMessage(err))
		s.record(ctx, stores.KindImport, repo, "error", err.Error())
		s.log.Warn().Ctx(ctx).Err(err).Msg("import check failed")
		return nil
	}

	payload, err := stores.ParseImport(file.Content)
	if err != nil {
		s.setError("Remote snapshot is not a valid export.")
		s.record(ctx, stores.KindImport, repo, "invalid", err.Error())
		s.log.Warn().Ctx(ctx).Err(err).Msg("remote snapshot rejected")
		return nil
	}

	s.store.Dispatch(state.ImportData{Tasks: payload.Tasks, Projects: payload.Projects})
	s.setError("")
	s.record(ctx, stores.KindImport, repo, "ok", fmt.Sprintf("tasks=%d projects=%d", len(payload.Tasks), len(payload.Projects)))
	s.sendNotice("Task data imported from the selected repository.")
	return nil
}

// ScheduleUpload fires a background upload after the configured delay. Each
// mutation schedules its own timer; rapid edits can produce redundant
// uploads, which is fine because the upload is idempotent on content.
func (s *Syncer) ScheduleUpload() {
	time.AfterFunc(s.cfg.AutoSyncDelay, func() {
		_ = s.Upload(context.Background(), false)
	})
}

// Upload pushes the current state to the selected repository, replacing the
// remote snapshot under its version token. showAlert controls whether the
// outcome is announced to the user; background auto-sync stays quiet.
//
// Only one upload runs at a time; a second concurrent call is rejected, not
// queued.
func (s *Syncer) Upload(ctx context.Context, showAlert bool) error {
	st := s.store.State()
	if !st.GitHub.IsConnected || st.GitHub.Token == "" || st.GitHub.SelectedRepo == "" {
		if showAlert {
			s.sendNotice("Connect to GitHub and select a repository first.")
		}
		return ErrNotConnected
	}
	repo := st.GitHub.SelectedRepo
	ctx = logging.WithRepo(ctx, repo)

	if !s.uploading.CompareAndSwap(false, true) {
		if showAlert {
			s.sendNotice("Sync already in progress.")
		}
		return ErrBusy
	}
	defer s.uploading.Store(false)

	s.store.Dispatch(state.SetSyncStatus{Patch: state.SyncStatusPatch{
		IsLoading: task.Ptr(true),
	}})

	err := s.upload(ctx, st, repo)
	if err != nil {
		msg := s.failureMessage(err)
		if errors.Is(err, ErrUnauthorized) {
			// The token is dead; keeping a half-connected state around
			// only produces repeat failures. Disconnect resets the whole
			// GitHub block, so the error is recorded after it.
			s.store.Dispatch(state.DisconnectGitHub{})
		}
		s.store.Dispatch(state.SetSyncStatus{Patch: state.SyncStatusPatch{
			IsLoading: task.Ptr(false),
			Error:     task.Ptr(msg),
		}})
		s.record(ctx, stores.KindUpload, repo, outcome(err), err.Error())
		s.log.Warn().Ctx(ctx).Err(err).Msg("upload failed")
		if showAlert {
			s.sendNotice(msg)
		}
		return err
	}

	now := s.now()
	lastSync := &now
	s.store.Dispatch(state.SetSyncStatus{Patch: state.SyncStatusPatch{
		IsLoading: task.Ptr(false),
		LastSync:  &lastSync,
		Error:     task.Ptr(""),
	}})
	s.record(ctx, stores.KindUpload, repo, "ok", "")
	s.log.Info().Ctx(ctx).Msg("uploaded")
	if showAlert {
		s.sendNotice("Synced to GitHub.")
	}
	return nil
}

func (s *Syncer) upload(ctx context.Context, st state.AppState, repo string) error {
	client := s.newClient(st.GitHub.Token)

	// The token never leaves the machine inside the snapshot.
	st.GitHub.Token = ""

	data, err := stores.Export(st)
	if err != nil {
		return err
	}

	// Fetch the current version token so the write replaces what we last
	// saw. Any failure here means we attempt a create; the server rejects
	// it with a conflict if the file actually exists.
	sha := ""
	if existing, err := client.GetFile(ctx, repo, RemotePath); err == nil {
		sha = existing.SHA
	}

	message := fmt.Sprintf("Update TaskFlow data - %s", s.now().Format("2006-01-02 15:04:05"))
	if _, err := client.PutFile(ctx, repo, RemotePath, message, data, sha); err != nil {
		return err
	}
	return nil
}

// filterRepos keeps repositories whose full name matches any configured glob
// pattern. No patterns means everything passes.
func (s *Syncer) filterRepos(repos []Repo) []state.Repo {
	out := make([]state.Repo, 0, len(repos))
	for _, r := range repos {
		if !s.matchesFilter(r.FullName) {
			continue
		}
		out = append(out, state.Repo{
			ID:       r.ID,
			Name:     r.Name,
			FullName: r.FullName,
			Private:  r.Private,
		})
	}
	return out
}

func (s *Syncer) matchesFilter(fullName string) bool {
	if len(s.cfg.RepoFilters) == 0 {
		return true
	}
	for _, pattern := range s.cfg.RepoFilters {
		if ok, err := doublestar.Match(pattern, fullName); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *Syncer) setError(msg string) {
	s.store.Dispatch(state.SetSyncStatus{Patch: state.SyncStatusPatch{
		Error: task.Ptr(msg),
	}})
}

// failureMessage maps an error to the remediation message shown to the user.
// Authentication, authorization, conflict, and timeout each get their own
// wording so the user knows what to actually do.
func (s *Syncer) failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "GitHub authentication failed. Reconnect with a fresh token."
	case errors.Is(err, ErrForbidden):
		return "GitHub denied the request. Check the token scopes or wait out the rate limit."
	case errors.Is(err, ErrConflict):
		return "Sync conflict: the remote file changed since the last sync."
	case IsTimeout(err):
		return "Sync timed out. Try again."
	default:
		return "Failed to sync with GitHub. Try again."
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}

func (s *Syncer) sendNotice(msg string) {
	if s.notify != nil {
		s.notify(msg)
	}
}

// record is nil-safe journal bookkeeping; a journal failure is never worth
// failing a sync over.
func (s *Syncer) record(ctx context.Context, kind stores.JournalKind, repo, outcome, detail string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, kind, repo, outcome, detail); err != nil {
		s.log.Warn().Err(err).Msg("journal write failed")
	}
}
