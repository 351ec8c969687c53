package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/intent"
	"github.com/aretw0/pmguide/pkg/knowledge"
)

// ErrNotHandled tells the Router to answer with the general handler instead.
var ErrNotHandled = errors.New("message not handled")

// Classifier maps raw text to an intent.
type Classifier interface {
	Classify(text string) domain.Classification
}

// Request is the input of a Handler.
type Request struct {
	Message        string
	Classification domain.Classification
	// Context is a snapshot owned by the call; handlers may read it freely.
	Context   *domain.ConversationContext
	Knowledge *knowledge.Base

	router *Router
}

// SearchFAQ looks the query up in the knowledge base and reports the lookup
// to the lifecycle hooks.
func (r *Request) SearchFAQ(ctx context.Context, query string) (domain.FAQ, bool) {
	faq, ok := r.Knowledge.SearchFAQ(query)
	if r.router != nil && r.router.hooks.OnFAQLookup != nil {
		r.router.hooks.OnFAQLookup(ctx, &domain.FAQEvent{
			EventBase: r.router.event(domain.EventFAQLookup, r.Context.SessionID),
			Query:     query,
			FAQID:     faq.ID,
			Hit:       ok,
		})
	}
	return faq, ok
}

// Handler produces the response for one intent.
type Handler func(ctx context.Context, req *Request) (*domain.ChatResponse, error)

// Result is the outcome of Router.Process.
type Result struct {
	Response       *domain.ChatResponse
	Classification domain.Classification
	// Context is the context to commit. It is nil when Faulted is true.
	Context *domain.ConversationContext
	Faulted bool
}

// Router dispatches classified messages to handlers.
type Router struct {
	kb         *knowledge.Base
	classifier Classifier
	handlers   map[domain.Intent]Handler
	hooks      domain.LifecycleHooks
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Router) {
		r.classifier = c
	}
}

// WithHandler overrides the handler for an intent.
func WithHandler(i domain.Intent, h Handler) Option {
	return func(r *Router) {
		r.handlers[i] = h
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = hooks
	}
}

// WithClock sets the time source for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for handler faults.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a Router over kb with the built-in handlers.
func NewRouter(kb *knowledge.Base, opts ...Option) *Router {
	r := &Router{
		kb:         kb,
		classifier: intent.New(),
		handlers: map[domain.Intent]Handler{
			domain.IntentApplicationFlow:  ApplicationFlow,
			domain.IntentDocumentInquiry:  DocumentInquiry,
			domain.IntentRequirementCheck: RequirementCheck,
			domain.IntentProgressStatus:   ProgressStatus,
			domain.IntentFAQ:              FAQ,
			domain.IntentGeneral:          General,
		},
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Knowledge returns the knowledge base the router answers from.
func (r *Router) Knowledge() *knowledge.Base {
	return r.kb
}

// Process handles one message against cc. cc itself is never modified.
func (r *Router) Process(ctx context.Context, message string, cc *domain.ConversationContext) Result {
	if cc == nil {
		cc = domain.NewConversationContext("")
	}
	start := r.now()
	cls := r.classifier.Classify(message)

	if r.hooks.OnClassify != nil {
		r.hooks.OnClassify(ctx, &domain.MessageEvent{
			EventBase:  r.event(domain.EventClassify, cc.SessionID),
			Intent:     cls.Intent,
			Confidence: cls.Confidence,
		})
	}

	req := &Request{
		Message:        message,
		Classification: cls,
		Context:        cc.Snapshot(),
		Knowledge:      r.kb,
		router:         r,
	}

	resp, err := r.dispatch(ctx, cls.Intent, req)
	if err != nil {
		r.logger.Error("dialogue handler failed",
			"session_id", cc.SessionID,
			"intent", cls.Intent,
			"err", err,
		)
		if r.hooks.OnFault != nil {
			r.hooks.OnFault(ctx, &domain.FaultEvent{
				EventBase: r.event(domain.EventFault, cc.SessionID),
				Intent:    cls.Intent,
				Err:       err,
			})
		}
		return Result{Response: ErrorResponse(), Classification: cls, Faulted: true}
	}

	next := cc.Snapshot()
	r.appendTurns(next, message, resp.Message)

	if r.hooks.OnRespond != nil {
		r.hooks.OnRespond(ctx, &domain.MessageEvent{
			EventBase:  r.event(domain.EventRespond, cc.SessionID),
			Intent:     cls.Intent,
			Confidence: cls.Confidence,
			Duration:   r.now().Sub(start),
		})
	}

	return Result{Response: resp, Classification: cls, Context: next}
}

func (r *Router) dispatch(ctx context.Context, i domain.Intent, req *Request) (*domain.ChatResponse, error) {
	resp, err := r.call(ctx, i, req)
	if errors.Is(err, ErrNotHandled) && i != domain.IntentGeneral {
		resp, err = r.call(ctx, domain.IntentGeneral, req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("handler for %s returned no response", i)
	}
	normalize(resp)
	return resp, nil
}

func (r *Router) call(ctx context.Context, i domain.Intent, req *Request) (resp *domain.ChatResponse, err error) {
	h, ok := r.handlers[i]
	if !ok {
		h, ok = r.handlers[domain.IntentGeneral]
	}
	if !ok || h == nil {
		return nil, fmt.Errorf("no handler for intent %s", i)
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = fmt.Errorf("handler for %s panicked: %v", i, rec)
		}
	}()
	return h(ctx, req)
}

// appendTurns adds the user and assistant turns with non-decreasing timestamps.
func (r *Router) appendTurns(cc *domain.ConversationContext, message, reply string) {
	userAt := r.now()
	if last := cc.LastTimestamp(); userAt.Before(last) {
		userAt = last
	}
	assistantAt := r.now()
	if assistantAt.Before(userAt) {
		assistantAt = userAt
	}
	cc.History = append(cc.History,
		domain.Turn{Role: domain.RoleUser, Content: message, Timestamp: userAt},
		domain.Turn{Role: domain.RoleAssistant, Content: reply, Timestamp: assistantAt},
	)
}

func (r *Router) event(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: r.now(), Type: t, SessionID: sessionID}
}

func normalize(resp *domain.ChatResponse) {
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	if resp.Attachments == nil {
		resp.Attachments = []domain.Attachment{}
	}
	if resp.QuickReplies == nil {
		resp.QuickReplies = []string{}
	}
}
