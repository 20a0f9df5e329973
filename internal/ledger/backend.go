package ledger

import (
	"context"
	"encoding/json"
	"sync"
)

const snapshotVersion = 1

// Snapshot is the full persisted state of a contract instance.
type Snapshot struct {
	Version   int                        `json:"version"`
	Genesis   int64                      `json:"genesis"`
	Sequence  uint32                     `json:"sequence"`
	LiveUntil uint32                     `json:"liveUntil"`
	Archived  bool                       `json:"archived"`
	Entries   map[string]json.RawMessage `json:"entries"`
	SavedAt   int64                      `json:"savedAt"`
}

// Backend persists snapshots. Load returns nil, nil when nothing was saved.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// IncrementalBackend stores entries individually. SaveChanges receives the
// instance metadata (Entries is nil) and only the entries written since the
// last save.
type IncrementalBackend interface {
	Backend
	SaveChanges(ctx context.Context, meta Snapshot, changed map[string]json.RawMessage) error
}

// MemoryBackend keeps the last snapshot in process.
type MemoryBackend struct {
	mu   sync.Mutex
	last *Snapshot
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil, nil
	}
	snap := *m.last
	return &snap, nil
}

func (m *MemoryBackend) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &snap
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
