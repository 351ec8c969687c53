package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// UpdateFunc transforms a context under the session lock.
// Returning a nil context or an error skips persistence.
type UpdateFunc func(ctx context.Context, cc *domain.ConversationContext) (*domain.ConversationContext, error)

// Manager serializes dialogue turns per session over a ContextStore.
// Lock entries are reference counted and dropped once no caller holds them.
type Manager struct {
	store ports.ContextStore

	mu    sync.Mutex // guards locks
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL requested from the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.ContextStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire returns the entry for sessionID with one more reference.
// Every acquire is paired with a release after entry.mu is unlocked.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.locks[sessionID]
	if entry == nil {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.locks[sessionID]
	if entry == nil {
		return
	}
	if entry.refs--; entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Get returns the stored context or a fresh default one. The default is not persisted.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	var cc *domain.ConversationContext
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		cc, err = m.loadOrDefault(ctx, sessionID)
		return err
	})
	return cc, err
}

// Load retrieves an existing session from the store.
// Returns domain.ErrSessionNotFound if it was never saved.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	var cc *domain.ConversationContext
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		cc, err = m.store.Load(ctx, sessionID)
		return err
	})
	return cc, err
}

// Save persists the session context.
func (m *Manager) Save(ctx context.Context, sessionID string, cc *domain.ConversationContext) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, cc)
	})
}

// Update runs a read-modify-write cycle on the session while holding its lock.
// It returns the persisted context, or the unchanged one when fn returned nil.
func (m *Manager) Update(ctx context.Context, sessionID string, fn UpdateFunc) (*domain.ConversationContext, error) {
	var result *domain.ConversationContext
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := m.loadOrDefault(ctx, sessionID)
		if err != nil {
			return err
		}

		next, err := fn(ctx, current.Snapshot())
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		if err := m.store.Save(ctx, sessionID, next); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		result = next
		return nil
	})
	return result, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying context store.
func (m *Manager) Store() ports.ContextStore {
	return m.store
}

func (m *Manager) loadOrDefault(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	cc, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return cc, nil
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewConversationContext(sessionID), nil
	}
	return nil, fmt.Errorf("failed to load session: %w", err)
}

// WithLock executes a function while holding the lock for the session.
// It is not reentrant: fn must not call back into the Manager for the same session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
