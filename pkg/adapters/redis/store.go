package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/pmguide/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix namespaces session keys.
	DefaultPrefix = "pmguide:session:"
	// DefaultProgressPrefix namespaces per-user progress keys.
	DefaultProgressPrefix = "pmguide:progress:"

	// farFuture is the index score of sessions without a TTL (2100-01-01).
	farFuture = 4102444800
)

// Store implements ports.ContextStore and ports.ProgressStore using Redis.
type Store struct {
	client         *backend.Client
	prefix         string
	progressPrefix string
	ttl            time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithProgressPrefix sets the key prefix for user progress records.
func WithProgressPrefix(prefix string) Option {
	return func(s *Store) {
		s.progressPrefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:         client,
		prefix:         DefaultPrefix,
		progressPrefix: DefaultProgressPrefix,
		ttl:            0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the session key prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the context to Redis.
func (s *Store) Save(ctx context.Context, sessionID string, cc *domain.ConversationContext) error {
	data, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	pipe := s.client.Pipeline()

	// 1. Save JSON with TTL
	// Use 0 for no expiration if ttl is not set.
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)

	// 2. Add to Index (ZSET)
	// Score = Now + TTL.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: sessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Load retrieves the context from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var cc domain.ConversationContext
	if err := json.Unmarshal(val, &cc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	normalize(&cc)

	return &cc, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns active sessions from the index.
// Expired entries are pruned lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	// Lazy Cleanup: Remove expired keys from Index
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE key -inf (now)
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

// SaveProgress stores the user record as JSON. Progress records never expire.
func (s *Store) SaveProgress(ctx context.Context, p *domain.UserProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, s.progressPrefix+p.UserID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save progress to redis: %w", err)
	}
	return nil
}

// LoadProgress returns domain.ErrUserNotFound when no record exists.
func (s *Store) LoadProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	val, err := s.client.Get(ctx, s.progressPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get progress from redis: %w", err)
	}

	var p domain.UserProgress
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	if p.CompletedSteps == nil {
		p.CompletedSteps = []string{}
	}
	if p.Tasks == nil {
		p.Tasks = []domain.Task{}
	}
	return &p, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func normalize(cc *domain.ConversationContext) {
	if cc.History == nil {
		cc.History = []domain.Turn{}
	}
	if cc.Preferences == nil {
		cc.Preferences = make(map[string]any)
	}
	if cc.Progress.CompletedSteps == nil {
		cc.Progress.CompletedSteps = []string{}
	}
	if cc.Progress.RemainingTasks == nil {
		cc.Progress.RemainingTasks = []string{}
	}
}
