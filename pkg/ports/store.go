package ports

import (
	"context"

	"github.com/aretw0/pmguide/pkg/domain"
)

// ContextStore defines the interface for persisting conversation contexts.
type ContextStore interface {
	// Save persists the context for a given session ID, replacing any previous value.
	Save(ctx context.Context, sessionID string, cc *domain.ConversationContext) error

	// Load retrieves the context for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.ConversationContext, error)

	// Delete removes the context for a given session ID.
	// Deleting an absent session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// ProgressStore persists per-user progress records.
type ProgressStore interface {
	// SaveProgress replaces the record for p.UserID.
	SaveProgress(ctx context.Context, p *domain.UserProgress) error

	// LoadProgress returns domain.ErrUserNotFound if the user has no record.
	LoadProgress(ctx context.Context, userID string) (*domain.UserProgress, error)
}
