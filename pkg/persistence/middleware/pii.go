package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
)

// Mask replaces every PII match in stored text.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, Japanese phone numbers and
// 12-digit individual numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`0\d{1,4}-\d{1,4}-\d{3,4}`,
	`\b\d{12}\b`,
}

type piiMiddleware struct {
	next     ports.ContextStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks pattern matches in turn
// contents and string preferences before they reach the store.
// Contexts read back keep the mask; the live context is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ContextStore) ports.ContextStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, cc *domain.ConversationContext) error {
	masked := cc.Snapshot()
	for i := range masked.History {
		masked.History[i].Content = m.mask(masked.History[i].Content)
	}
	maskMap(masked.Preferences, m.mask)
	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func maskMap(prefs map[string]any, mask func(string) string) {
	for k, v := range prefs {
		switch val := v.(type) {
		case string:
			prefs[k] = mask(val)
		case map[string]any:
			maskMap(val, mask)
		}
	}
}
