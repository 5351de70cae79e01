package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/reviewagent/revchat/pkg/dotdir"
)

const (
	authFile = "auth.toml"

	currentVersion = 0
)

// Manager manages reading and writing auth.toml in the .revchat/ directory
// and serves the stored user as an Identity.
type Manager struct {
	targetPath string
	logger     *slog.Logger

	mu      sync.RWMutex
	current *UserRecord
}

// NewManager creates a new auth Manager. If override is non-empty it is used
// as the .revchat/ directory; otherwise the standard dotdir resolution applies.
// The stored identity is not read until Hydrate.
func NewManager(override string, logger *slog.Logger) (*Manager, error) {
	path, err := dotdir.File(override, authFile)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Manager{targetPath: path, logger: logger}, nil
}

// Load reads auth.toml. Returns an empty Record if the file does not exist.
func (m *Manager) Load() (*Record, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Record{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading auth: %w", err)
	}

	rec := &Record{}
	if err := toml.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parsing auth: %w", err)
	}

	return rec, nil
}

// Hydrate refreshes the in-memory identity from disk.
func (m *Manager) Hydrate() error {
	rec, err := m.Load()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.User == nil || rec.User.ID == "" {
		m.current = nil
		return nil
	}

	u := *rec.User
	m.current = &u

	return nil
}

// Save persists the user with 0600 permissions and makes it current.
func (m *Manager) Save(id, username string) error {
	if id == "" {
		return errors.New("cannot save an empty user id")
	}

	user := &UserRecord{ID: id, Username: username, LoggedInAt: time.Now().UTC()}
	if err := m.write(&Record{Version: currentVersion, User: user}); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = user
	m.mu.Unlock()

	return nil
}

// Clear forgets the stored user.
func (m *Manager) Clear() error {
	if err := m.write(&Record{Version: currentVersion}); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	return nil
}

func (m *Manager) write(rec *Record) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encoding auth: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing auth: %w", err)
	}

	return nil
}

// UserID implements Identity.
func (m *Manager) UserID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return "", false
	}
	return m.current.ID, true
}

// Current returns a copy of the logged-in user.
func (m *Manager) Current() (UserRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return UserRecord{}, false
	}
	return *m.current, true
}

// GetTarget returns the resolved path to the auth file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// Watch re-hydrates whenever another process rewrites auth.toml, until ctx
// is done. The directory is watched rather than the file so replacement by
// rename is seen too.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating auth watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(m.targetPath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(m.targetPath), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != authFile {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}

			if err := m.Hydrate(); err != nil {
				// A half-written file parses on the next event.
				m.logger.Debug("re-reading auth failed", "error", err)
				continue
			}

			id, ok := m.UserID()
			m.logger.Debug("identity changed", "user_id", id, "logged_in", ok)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("auth watcher error", "error", err)
		}
	}
}
