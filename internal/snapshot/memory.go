package snapshot

import (
	"encoding/json"
	"sync"

	"github.com/examind/proctor/internal/session"
)

// MemoryStore is an in-process SnapshotStore. It round-trips snapshots
// through JSON so it exercises the same serialization path as the
// durable store; used in tests and as a fallback when no local database
// can be opened.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Save stores the snapshot for a test ID.
func (s *MemoryStore) Save(testID string, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[testID] = raw
	s.mu.Unlock()
	return nil
}

// Load returns the snapshot for a test ID, or (nil, nil) when absent.
func (s *MemoryStore) Load(testID string) (*session.Snapshot, error) {
	s.mu.Lock()
	raw, ok := s.data[testID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Clear removes the snapshot for a test ID.
func (s *MemoryStore) Clear(testID string) error {
	s.mu.Lock()
	delete(s.data, testID)
	s.mu.Unlock()
	return nil
}
