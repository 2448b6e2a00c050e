package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// The run-lock registry is process wide so two Managers cannot run the same
// session concurrently.
var (
	activeMu sync.Mutex
	active   = make(map[string]bool)
)

// Manager serializes access to sessions: at most one active run per session
// name, backed by the durable store.
type Manager struct {
	store *Store
	log   *zap.Logger
}

func NewManager(store *Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log}
}

// Acquire loads (or creates) the session and locks it for one run. The
// returned release func must be called when the run ends. A second Acquire
// on the same name before release fails with ErrSessionBusy.
func (m *Manager) Acquire(ctx context.Context, name string) (*Session, func(), error) {
	activeMu.Lock()
	if active[name] {
		activeMu.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionBusy, name)
	}
	active[name] = true
	activeMu.Unlock()

	release := func() {
		activeMu.Lock()
		delete(active, name)
		activeMu.Unlock()
	}

	sess, err := m.store.Get(ctx, name)
	if err == nil {
		return sess, release, nil
	}
	if !isNotFound(err) {
		release()
		return nil, nil, err
	}

	m.log.Info("creating new session", zap.String("name", name))
	return New(name), release, nil
}

// Save persists the session through the store.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	return m.store.Put(ctx, sess)
}

func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	return m.store.List(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
