package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventClassify  EventType = "classify"
	EventRespond   EventType = "respond"
	EventFault     EventType = "fault"
	EventFAQLookup EventType = "faq_lookup"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// MessageEvent reports the handling of one user message.
type MessageEvent struct {
	EventBase
	Intent     Intent        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// FaultEvent reports a handler failure converted into an apology response.
type FaultEvent struct {
	EventBase
	Intent Intent `json:"intent"`
	Err    error  `json:"-"`
}

// FAQEvent reports a knowledge base FAQ lookup.
type FAQEvent struct {
	EventBase
	Query string `json:"query"`
	FAQID string `json:"faq_id,omitempty"`
	Hit   bool   `json:"hit"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnClassify  func(context.Context, *MessageEvent)
	OnRespond   func(context.Context, *MessageEvent)
	OnFault     func(context.Context, *FaultEvent)
	OnFAQLookup func(context.Context, *FAQEvent)
}
