package pmguide

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/adapters/memory"
	"github.com/aretw0/pmguide/pkg/dialogue"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/aretw0/pmguide/pkg/ports"
	"github.com/aretw0/pmguide/pkg/session"
)

// Engine is the high-level entry point of the library.
// It wires the knowledge base, the dialogue router and the session manager.
type Engine struct {
	kb            *knowledge.Base
	knowledgePath string
	store         ports.ContextStore
	locker        ports.DistributedLocker
	hooks         domain.LifecycleHooks
	handlers      map[domain.Intent]dialogue.Handler
	now           func() time.Time
	logger        *slog.Logger

	router   *dialogue.Router
	sessions *session.Manager
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithKnowledgeBase injects an already loaded knowledge base.
func WithKnowledgeBase(kb *knowledge.Base) Option {
	return func(e *Engine) {
		e.kb = kb
	}
}

// WithKnowledgeFile loads the corpus from path. An unreadable or invalid file
// falls back to the built-in corpus. WithKnowledgeBase takes precedence.
func WithKnowledgeFile(path string) Option {
	return func(e *Engine) {
		e.knowledgePath = path
	}
}

// WithStore injects the session store (default: in memory).
func WithStore(store ports.ContextStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed per-session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithHandler replaces the handler of one intent.
func WithHandler(i domain.Intent, h dialogue.Handler) Option {
	return func(e *Engine) {
		e.handlers[i] = h
	}
}

// WithClock sets the time source for turn and commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine. It never fails: a missing corpus degrades to the
// built-in one.
func New(opts ...Option) *Engine {
	e := &Engine{
		handlers: make(map[domain.Intent]dialogue.Handler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.kb == nil {
		e.kb = knowledge.Load(e.knowledgePath, e.logger)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	routerOpts := []dialogue.Option{
		dialogue.WithLifecycleHooks(e.hooks),
		dialogue.WithClock(e.now),
		dialogue.WithLogger(e.logger),
	}
	for i, h := range e.handlers {
		routerOpts = append(routerOpts, dialogue.WithHandler(i, h))
	}
	e.router = dialogue.NewRouter(e.kb, routerOpts...)

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	e.logger.Debug("engine initialized",
		"knowledge", e.kb.Source(),
		"steps", len(e.kb.Steps()),
	)
	return e
}

// Chat processes one message for the session and returns the reply.
// Handler faults are answered with an apology and leave the session untouched;
// the returned error only reports storage failures.
func (e *Engine) Chat(ctx context.Context, sessionID, userID, message string) (*domain.ChatResponse, error) {
	var resp *domain.ChatResponse
	_, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, cc *domain.ConversationContext) (*domain.ConversationContext, error) {
		res := e.router.Process(ctx, message, cc)
		resp = res.Response
		if res.Faulted {
			return nil, nil
		}
		next := res.Context
		if next.UserID == "" {
			next.UserID = userID
		}
		next.UpdatedAt = e.now().UTC()
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Context returns the session context, or a fresh default one for an unseen ID.
func (e *Engine) Context(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	return e.sessions.Get(ctx, sessionID)
}

// Session returns a stored session or domain.ErrSessionNotFound.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Reset deletes the session. Resetting an unknown session is not an error.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// ListSessions returns the IDs of stored sessions.
func (e *Engine) ListSessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// AdvanceStep commits the step that the application flow narrates: the
// current step is marked completed and its canonical successor becomes
// current. RemainingTasks is reset to the documents the new step requires.
// It returns the new progress and the change, which is nil when nothing moved.
func (e *Engine) AdvanceStep(ctx context.Context, sessionID string) (domain.Progress, *domain.ProgressDelta, error) {
	var delta *domain.ProgressDelta
	cc, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, cc *domain.ConversationContext) (*domain.ConversationContext, error) {
		before := cc.Progress.Clone()
		next, err := e.advance(before)
		if err != nil {
			return nil, err
		}
		delta = domain.DiffProgress(&before, next)
		if delta == nil {
			return nil, nil
		}
		cc.Progress = next
		cc.UpdatedAt = e.now().UTC()
		return cc, nil
	})
	if err != nil {
		return domain.Progress{}, nil, err
	}
	return cc.Progress.Clone(), delta, nil
}

func (e *Engine) advance(p domain.Progress) (domain.Progress, error) {
	switch p.CurrentStep {
	case domain.StepCompleted:
		return p, nil
	case domain.StepInitial, "":
		return e.enter(p, e.kb.FirstStep()), nil
	}

	step, ok := e.kb.Step(p.CurrentStep)
	if !ok {
		return p, fmt.Errorf("%w: %q", domain.ErrUnknownStep, p.CurrentStep)
	}
	p.MarkCompleted(step.ID)
	if succ := step.Successor(); succ != "" {
		return e.enter(p, succ), nil
	}
	p.CurrentStep = domain.StepCompleted
	p.RemainingTasks = []string{}
	return p, nil
}

func (e *Engine) enter(p domain.Progress, stepID string) domain.Progress {
	p.CurrentStep = stepID
	p.RemainingTasks = []string{}
	if step, ok := e.kb.Step(stepID); ok {
		p.RemainingTasks = append(p.RemainingTasks, step.RequiredDocuments...)
	}
	return p
}

// UpdateSessionProgress replaces the session progress after checking it
// against the step chain.
func (e *Engine) UpdateSessionProgress(ctx context.Context, sessionID string, p domain.Progress) (*domain.ProgressDelta, error) {
	p = p.Clone()
	if p.CurrentStep == "" {
		p.CurrentStep = domain.StepInitial
	}
	if err := e.kb.ValidateProgress(p); err != nil {
		return nil, err
	}

	var delta *domain.ProgressDelta
	_, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, cc *domain.ConversationContext) (*domain.ConversationContext, error) {
		delta = domain.DiffProgress(&cc.Progress, p)
		if delta == nil {
			return nil, nil
		}
		cc.Progress = p
		cc.UpdatedAt = e.now().UTC()
		return cc, nil
	})
	if err != nil {
		return nil, err
	}
	return delta, nil
}

// Knowledge returns the knowledge base the engine answers from.
func (e *Engine) Knowledge() *knowledge.Base {
	return e.kb
}

// SearchFAQ looks a query up in the knowledge base.
func (e *Engine) SearchFAQ(query string) (domain.FAQ, bool) {
	return e.kb.SearchFAQ(query)
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Router returns the dialogue router.
func (e *Engine) Router() *dialogue.Router {
	return e.router
}
