package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/pmguide/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnClassify: func(ctx context.Context, e *domain.MessageEvent) {
			logger.Debug("message classified",
				"session_id", e.SessionID,
				"intent", e.Intent,
				"confidence", e.Confidence,
			)
		},
		OnRespond: func(ctx context.Context, e *domain.MessageEvent) {
			logger.Info("message handled",
				"session_id", e.SessionID,
				"intent", e.Intent,
				"duration", e.Duration,
			)
		},
		OnFault: func(ctx context.Context, e *domain.FaultEvent) {
			logger.Error("handler fault",
				"session_id", e.SessionID,
				"intent", e.Intent,
				"err", e.Err,
			)
		},
		OnFAQLookup: func(ctx context.Context, e *domain.FAQEvent) {
			logger.Debug("faq lookup",
				"session_id", e.SessionID,
				"faq_id", e.FAQID,
				"hit", e.Hit,
			)
		},
	}
}

// Chain combines hook sets; each event is delivered to every set in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnClassify = chainMessage(out.OnClassify, h.OnClassify)
		out.OnRespond = chainMessage(out.OnRespond, h.OnRespond)
		out.OnFault = chainFault(out.OnFault, h.OnFault)
		out.OnFAQLookup = chainFAQ(out.OnFAQLookup, h.OnFAQLookup)
	}
	return out
}

func chainMessage(a, b func(context.Context, *domain.MessageEvent)) func(context.Context, *domain.MessageEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.MessageEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainFault(a, b func(context.Context, *domain.FaultEvent)) func(context.Context, *domain.FaultEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.FaultEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainFAQ(a, b func(context.Context, *domain.FAQEvent)) func(context.Context, *domain.FAQEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.FAQEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
