package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colonyops/taskflow/internal/data/db"
)

// JournalKind classifies a sync attempt.
type JournalKind string

// Journal entry kinds.
const (
	KindConnect JournalKind = "connect"
	KindImport  JournalKind = "import"
	KindUpload  JournalKind = "upload"
)

// JournalEntry is one recorded sync attempt.
type JournalEntry struct {
	ID        string      `json:"id"`
	Kind      JournalKind `json:"kind"`
	Repo      string      `json:"repo"`
	Outcome   string      `json:"outcome"`
	Detail    string      `json:"detail,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// JournalStore records sync attempts in SQLite for later inspection.
type JournalStore struct {
	db *db.DB
}

// NewJournalStore creates a SQLite-backed sync journal.
func NewJournalStore(db *db.DB) *JournalStore {
	return &JournalStore{db: db}
}

// Record appends a journal entry.
func (s *JournalStore) Record(ctx context.Context, kind JournalKind, repo, outcome, detail string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO sync_journal (id, kind, repo, outcome, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(kind), repo, outcome, detail, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *JournalStore) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, kind, repo, outcome, detail, created_at FROM sync_journal ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []JournalEntry
	for rows.Next() {
		var (
			entry     JournalEntry
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &kind, &entry.Repo, &entry.Outcome, &entry.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.Kind = JournalKind(kind)
		entry.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the cutoff.
func (s *JournalStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM sync_journal WHERE created_at < ?`,
		olderThan.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune journal rows affected: %w", err)
	}
	return n, nil
}
