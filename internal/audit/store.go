package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
)

var (
	_ Store = (*PGStore)(nil)
	_ Store = (*Memory)(nil)
)

// PGStore appends entries to the audit_log table.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	var details any
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return err
		}
		details = string(raw)
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, occurred_at, actor_user_id, action, resource_type, resource_id, details)
		 values($1,$2,nullif($3,''),$4,nullif($5,''),nullif($6,''),$7)`,
		entry.ID, entry.OccurredAt, entry.ActorUserID, entry.Action,
		entry.ResourceType, entry.ResourceID, details,
	)
	return err
}

// Memory keeps entries in a slice, for tests and database-less runs.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

// Entries returns a copy of everything appended so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
