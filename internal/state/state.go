// Package state persists the playback session in SQLite.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "cadence"
	dbFileName   = "cadence.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	log       logrus.FieldLogger
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *Session
	debounce  time.Duration
}

// Open opens the state database at path, or at the XDG data location when
// path is empty.
func Open(path string, log logrus.FieldLogger) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each connection would get its own database
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Manager{
		db:       db,
		log:      log.WithField("component", "state"),
		debounce: saveDebounce,
	}, nil
}

// DefaultPath returns the XDG data location of the state database.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

func (m *Manager) Close() error {
	if err := m.Flush(); err != nil {
		m.log.WithError(err).Warn("flushing session on close")
	}
	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// GetSession returns the saved session, or nil when none was saved.
func (m *Manager) GetSession() (*Session, error) {
	return getSession(context.Background(), m.db)
}

// SaveSession schedules a debounced save. Only the latest state of a burst
// is written.
func (m *Manager) SaveSession(s Session) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &s

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(m.debounce, func() {
		if err := m.Flush(); err != nil {
			m.log.WithError(err).Warn("saving session")
		}
	})
}

// Flush writes a pending session immediately.
func (m *Manager) Flush() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending == nil {
		return nil
	}
	return saveSession(context.Background(), m.db, *pending)
}
