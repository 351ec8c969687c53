package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/pmguide/pkg/domain"
)

// Store implements ports.ContextStore and ports.ProgressStore in memory.
// Safe for concurrent use.
type Store struct {
	data     map[string]*domain.ConversationContext
	progress map[string]*domain.UserProgress
	mu       sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:     make(map[string]*domain.ConversationContext),
		progress: make(map[string]*domain.UserProgress),
	}
}

// Save persists the context in memory.
func (s *Store) Save(ctx context.Context, sessionID string, cc *domain.ConversationContext) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := cc.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the context from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cc, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Create a copy on read so caller can't mutate store state directly by pointer
	return cc.Snapshot(), nil
}

// Delete removes the context.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns all stored session IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveProgress stores a copy of p.
func (s *Store) SaveProgress(ctx context.Context, p *domain.UserProgress) error {
	copied := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[p.UserID] = copied
	return nil
}

// LoadProgress returns a copy of the stored record.
func (s *Store) LoadProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p.Clone(), nil
}
