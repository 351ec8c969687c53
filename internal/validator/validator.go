package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/google/uuid"
)

// DefaultMaxMessageLength is the maximum number of characters accepted in a chat message.
const DefaultMaxMessageLength = 1000

var ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field problem found in a request.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("%s: %s", d.Field, d.Message))
	}
	return "invalid request data: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Details = append(e.Details, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) err() error {
	if len(e.Details) == 0 {
		return nil
	}
	return e
}

// ChatMessage is the body of a submit-message request.
type ChatMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

// NewTask is the body of an add-task request.
type NewTask struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Validator checks and cleans requests before they reach the engine.
type Validator struct {
	maxMessageLength int
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxMessageLength overrides DefaultMaxMessageLength. Non-positive values are ignored.
func WithMaxMessageLength(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxMessageLength = n
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{maxMessageLength: DefaultMaxMessageLength}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// MaxMessageLength returns the configured message limit in characters.
func (v *Validator) MaxMessageLength() int {
	return v.maxMessageLength
}

// ChatMessage validates req and returns a sanitized copy.
func (v *Validator) ChatMessage(req ChatMessage) (ChatMessage, error) {
	verr := &ValidationError{}

	msg, err := SanitizeInput(req.Message)
	switch {
	case err != nil:
		verr.add("message", "%v", err)
	case msg == "":
		verr.add("message", "is required")
	case utf8.RuneCountInString(msg) > v.maxMessageLength:
		verr.add("message", "length must be less than or equal to %d characters", v.maxMessageLength)
	}

	if req.SessionID == "" {
		verr.add("sessionId", "is required")
	} else if err := SessionID(req.SessionID); err != nil {
		verr.add("sessionId", "must be a valid GUID")
	}

	if req.UserID != "" {
		if err := UserID(req.UserID); err != nil {
			verr.add("userId", "%v", err)
		}
	}

	if err := verr.err(); err != nil {
		return ChatMessage{}, err
	}
	req.Message = msg
	return req, nil
}

// SessionID reports whether id is a UUID.
func SessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return nil
}

// UserID accepts opaque identifiers that are printable and usable as a path segment.
func UserID(id string) error {
	if id == "" {
		return errors.New("is required")
	}
	if len(id) > 128 {
		return errors.New("must be at most 128 bytes")
	}
	if !utf8.ValidString(id) || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return errors.New("contains invalid characters")
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return errors.New("contains invalid characters")
		}
	}
	return nil
}

// NewTask validates an add-task request.
func (v *Validator) NewTask(req NewTask) (NewTask, error) {
	verr := &ValidationError{}
	name, err := SanitizeInput(strings.TrimSpace(req.Name))
	if err != nil {
		verr.add("name", "%v", err)
	} else if name == "" {
		verr.add("name", "タスク名は必須です")
	}
	desc, err := SanitizeInput(req.Description)
	if err != nil {
		verr.add("description", "%v", err)
	}
	if err := verr.err(); err != nil {
		return NewTask{}, err
	}
	req.Name = name
	req.Description = desc
	return req, nil
}

// TaskStatus validates a task status value.
func TaskStatus(s string) (domain.TaskStatus, error) {
	status := domain.TaskStatus(s)
	if !status.Valid() {
		verr := &ValidationError{}
		verr.add("status", "must be one of [%s, %s, %s]",
			domain.TaskPending, domain.TaskInProgress, domain.TaskCompleted)
		return "", verr
	}
	return status, nil
}

// SanitizeInput validates UTF-8 and strips control characters other than
// newline, tab and carriage return.
func SanitizeInput(input string) (string, error) {
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
