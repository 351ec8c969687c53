package domain

import (
	"slices"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is the position of a session within the certification step chain.
// CompletedSteps has set semantics; insertion order is kept for display.
type Progress struct {
	CurrentStep    string   `json:"currentStep" mapstructure:"currentStep"`
	CompletedSteps []string `json:"completedSteps" mapstructure:"completedSteps"`
	RemainingTasks []string `json:"remainingTasks" mapstructure:"remainingTasks"`
}

// NewProgress returns the progress of a session that has not started yet.
func NewProgress() Progress {
	return Progress{
		CurrentStep:    StepInitial,
		CompletedSteps: []string{},
		RemainingTasks: []string{},
	}
}

// HasCompleted reports whether stepID is in the completed set.
func (p Progress) HasCompleted(stepID string) bool {
	return slices.Contains(p.CompletedSteps, stepID)
}

// MarkCompleted adds stepID to the completed set if absent.
func (p *Progress) MarkCompleted(stepID string) {
	if p.HasCompleted(stepID) {
		return
	}
	p.CompletedSteps = append(p.CompletedSteps, stepID)
}

// Clone returns a copy that shares no slices with p.
func (p Progress) Clone() Progress {
	return Progress{
		CurrentStep:    p.CurrentStep,
		CompletedSteps: cloneStrings(p.CompletedSteps),
		RemainingTasks: cloneStrings(p.RemainingTasks),
	}
}

// ConversationContext is the per-session conversational state.
type ConversationContext struct {
	SessionID   string         `json:"sessionId"`
	UserID      string         `json:"userId,omitempty"`
	History     []Turn         `json:"history"`
	Progress    Progress       `json:"progress"`
	Preferences map[string]any `json:"preferences"`

	// UpdatedAt is set by the engine each time the context is committed.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// NewConversationContext creates the default context for a session.
// The result depends only on sessionID.
func NewConversationContext(sessionID string) *ConversationContext {
	return &ConversationContext{
		SessionID:   sessionID,
		History:     []Turn{},
		Progress:    NewProgress(),
		Preferences: make(map[string]any),
	}
}

// Snapshot creates a deep copy of the context.
// Handlers and stores work on snapshots so that a failed operation never
// leaves a partially mutated context visible to other readers.
func (c *ConversationContext) Snapshot() *ConversationContext {
	if c == nil {
		return nil
	}
	out := *c
	out.History = make([]Turn, len(c.History))
	copy(out.History, c.History)
	out.Progress = c.Progress.Clone()
	out.Preferences = make(map[string]any, len(c.Preferences))
	for k, v := range c.Preferences {
		out.Preferences[k] = copyValue(v)
	}
	return &out
}

// LastTimestamp returns the timestamp of the newest turn, or the zero time.
func (c *ConversationContext) LastTimestamp() time.Time {
	if len(c.History) == 0 {
		return time.Time{}
	}
	return c.History[len(c.History)-1].Timestamp
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = copyValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = copyValue(inner)
		}
		return s
	case []string:
		return cloneStrings(t)
	default:
		return v
	}
}
