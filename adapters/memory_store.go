package adapters

import (
	"sync"

	"github.com/anchorpoint-labs/apibridge"
)

// MemoryStore is an in-process session store for tests and short-lived
// programs. Mutation happens only through Save and Clear.
type MemoryStore struct {
	mu      sync.RWMutex
	session *apibridge.Session
}

var _ apibridge.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored session, or (nil, nil) when empty.
func (m *MemoryStore) Load() (*apibridge.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

// Save replaces the stored session wholesale. Saving nil clears the store.
func (m *MemoryStore) Save(s *apibridge.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.session = nil
		return nil
	}
	cp := *s
	m.session = &cp
	return nil
}

// Clear removes any stored session.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
