// Package progress tracks certification progress and preparation tasks per user.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/aretw0/pmguide/pkg/ports"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidTask is returned for a task without a name or with an unknown status.
var ErrInvalidTask = errors.New("invalid task")

// Patch is a partial progress update. Nil fields are left unchanged.
type Patch struct {
	CurrentStep    *string       `mapstructure:"currentStep"`
	CompletedSteps []string      `mapstructure:"completedSteps"`
	Tasks          []domain.Task `mapstructure:"tasks"`
}

// NewTask describes a task to add.
type NewTask struct {
	Name        string
	Description string
	DueDate     *time.Time
}

// DecodePatch builds a Patch from a decoded JSON object.
// Timestamps are expected in RFC 3339.
func DecodePatch(raw map[string]any) (Patch, error) {
	var p Patch
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     &p,
	})
	if err != nil {
		return Patch{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Patch{}, fmt.Errorf("failed to decode progress patch: %w", err)
	}
	return p, nil
}

// Service reads and updates user progress.
type Service struct {
	store ports.ProgressStore
	kb    *knowledge.Base

	// mu serializes read-modify-write cycles.
	mu sync.Mutex

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the task ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a progress service validating against kb.
func NewService(store ports.ProgressStore, kb *knowledge.Base, opts ...Option) *Service {
	s := &Service{
		store:  store,
		kb:     kb,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored record or the default record for a new user.
func (s *Service) Get(ctx context.Context, userID string) (*domain.UserProgress, error) {
	p, err := s.store.LoadProgress(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return s.fresh(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return p, nil
}

// Update applies patch. The first write of a user sets StartDate.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (*domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadForWrite(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if patch.CurrentStep != nil && *patch.CurrentStep != "" {
		p.CurrentStep = *patch.CurrentStep
	}
	if patch.CompletedSteps != nil {
		p.CompletedSteps = dedupe(patch.CompletedSteps)
	}
	if patch.Tasks != nil {
		tasks, err := s.normalizeTasks(patch.Tasks, now)
		if err != nil {
			return nil, err
		}
		p.Tasks = tasks
	}

	if err := s.kb.ValidateProgress(domain.Progress{
		CurrentStep:    p.CurrentStep,
		CompletedSteps: p.CompletedSteps,
	}); err != nil {
		return nil, err
	}

	p.LastUpdated = &now
	if err := s.store.SaveProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	s.logger.Debug("progress updated", "user_id", userID, "current_step", p.CurrentStep)
	return p, nil
}

// AddTask appends a pending task to the user's record.
func (s *Service) AddTask(ctx context.Context, userID string, t NewTask) (domain.Task, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return domain.Task{}, fmt.Errorf("%w: name is required", ErrInvalidTask)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadForWrite(ctx, userID)
	if err != nil {
		return domain.Task{}, err
	}
	now := s.now().UTC()

	task := domain.Task{
		ID:          s.newID(),
		Name:        name,
		Description: t.Description,
		Status:      domain.TaskPending,
		DueDate:     t.DueDate,
		CreatedAt:   now,
	}
	p.Tasks = append(p.Tasks, task)
	p.LastUpdated = &now

	if err := s.store.SaveProgress(ctx, p); err != nil {
		return domain.Task{}, fmt.Errorf("failed to save progress: %w", err)
	}
	return task, nil
}

// UpdateTask sets the status of an existing task.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, status domain.TaskStatus) (domain.Task, error) {
	if !status.Valid() {
		return domain.Task{}, fmt.Errorf("%w: status %q", ErrInvalidTask, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.LoadProgress(ctx, userID)
	if err != nil {
		return domain.Task{}, err
	}
	i := p.TaskIndex(taskID)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}

	now := s.now().UTC()
	task := &p.Tasks[i]
	task.Status = status
	task.UpdatedAt = &now
	if status == domain.TaskCompleted {
		completed := now
		task.CompletedAt = &completed
	}
	p.LastUpdated = &now

	if err := s.store.SaveProgress(ctx, p); err != nil {
		return domain.Task{}, fmt.Errorf("failed to save progress: %w", err)
	}
	return *task, nil
}

// loadForWrite returns the stored record, or a fresh one stamped with StartDate.
func (s *Service) loadForWrite(ctx context.Context, userID string) (*domain.UserProgress, error) {
	p, err := s.store.LoadProgress(ctx, userID)
	if err == nil {
		if p.StartDate == nil {
			start := s.now().UTC()
			p.StartDate = &start
		}
		return p, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	p = s.fresh(userID)
	start := s.now().UTC()
	p.StartDate = &start
	return p, nil
}

func (s *Service) fresh(userID string) *domain.UserProgress {
	p := domain.NewUserProgress(userID)
	p.TotalSteps = len(s.kb.Steps())
	return p
}

func (s *Service) normalizeTasks(in []domain.Task, now time.Time) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidTask)
		}
		if t.Status == "" {
			t.Status = domain.TaskPending
		}
		if !t.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrInvalidTask, t.Status)
		}
		if t.ID == "" {
			t.ID = s.newID()
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTask, t.ID)
		}
		seen[t.ID] = true
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		out = append(out, t)
	}
	return out, nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
