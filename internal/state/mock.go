// internal/state/mock.go
package state

import (
	"database/sql"
	"sync"
)

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

// Mock is an in-memory test double for Manager. Saves apply immediately.
type Mock struct {
	mu      sync.Mutex
	session *Session
	saves   int
	closed  bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

// SetSession seeds the session returned by GetSession.
func (m *Mock) SetSession(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
}

func (m *Mock) DB() *sql.DB { return nil }

func (m *Mock) SaveSession(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	m.saves++
}

func (m *Mock) GetSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil //nolint:nilnil // no saved session
	}
	cp := *m.session
	return &cp, nil
}

// Saves returns the number of SaveSession calls.
func (m *Mock) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Mock) Flush() error { return nil }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
