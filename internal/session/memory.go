package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Entries expire after ttl;
// a zero ttl keeps them for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || m.expired(entry) {
		return nil, ErrNotFound
	}

	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}

	s.UpdatedAt = m.now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}

	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[s.ID] = entry
	m.purgeLocked()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	if m.expired(entry) {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	return ok && !m.expired(entry), nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if !m.expired(e) {
			n++
		}
	}
	return n
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}

func (m *MemoryStore) purgeLocked() {
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
		}
	}
}
