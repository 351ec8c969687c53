// Package intent maps free text to a dialogue intent with ordered keyword rules.
package intent

import (
	"strings"

	"github.com/aretw0/pmguide/pkg/domain"
)

// Rule tags a message with Intent when any keyword is a substring of it.
// Keywords are matched case-insensitively.
type Rule struct {
	Intent     domain.Intent
	Confidence float64
	Keywords   []string
}

// Fallback is returned when no rule matches.
var Fallback = domain.Classification{Intent: domain.IntentGeneral, Confidence: 0.5}

// DefaultRules is the built-in rule table. Order matters: the first match wins.
var DefaultRules = []Rule{
	{
		Intent:     domain.IntentApplicationFlow,
		Confidence: 0.9,
		Keywords:   []string{"申請", "手続き", "フロー", "流れ", "procedure", "apply", "application"},
	},
	{
		Intent:     domain.IntentDocumentInquiry,
		Confidence: 0.9,
		Keywords:   []string{"書類", "様式", "テンプレート", "document", "forms", "template"},
	},
	{
		Intent:     domain.IntentRequirementCheck,
		Confidence: 0.9,
		Keywords:   []string{"要件", "条件", "資格", "requirement", "eligib"},
	},
	{
		Intent:     domain.IntentProgressStatus,
		Confidence: 0.9,
		Keywords:   []string{"進捗", "状況", "ステータス", "progress", "status"},
	},
	{
		Intent:     domain.IntentFAQ,
		Confidence: 0.7,
		Keywords:   []string{"？", "?", "教えて", "どう", "explain", "how do", "how to", "how long", "how much", "how many"},
	},
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New returns a Classifier over rules, or DefaultRules when none are given.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Classifier{rules: make([]Rule, len(rules))}
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		r.Keywords = kws
		c.rules[i] = r
	}
	return c
}

// Classify returns the intent of the first rule with a keyword hit.
// Empty input classifies as general.
func (c *Classifier) Classify(text string) domain.Classification {
	msg := strings.ToLower(text)
	if strings.TrimSpace(msg) == "" {
		return Fallback
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(msg, kw) {
				return domain.Classification{Intent: r.Intent, Confidence: r.Confidence}
			}
		}
	}
	return Fallback
}

// Classify uses the default rule table.
func Classify(text string) domain.Classification {
	return defaultClassifier.Classify(text)
}

var defaultClassifier = New()
