package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSession = "6f1c1e9a-3d56-4b8f-9d2a-2f1d8c7b5a40"

func fields(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	out := make([]string, 0, len(verr.Details))
	for _, d := range verr.Details {
		out = append(out, d.Field)
	}
	return out
}

func TestChatMessage(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     ChatMessage
		fields  []string
		message string
	}{
		{
			name:    "valid",
			req:     ChatMessage{Message: "申請の流れ", SessionID: validSession},
			message: "申請の流れ",
		},
		{
			name:    "control characters stripped",
			req:     ChatMessage{Message: "書類\x1b[31m\x00一覧\n", SessionID: validSession, UserID: "user-1"},
			message: "書類[31m一覧\n",
		},
		{
			name:   "missing everything",
			req:    ChatMessage{},
			fields: []string{"message", "sessionId"},
		},
		{
			name:   "bad uuid",
			req:    ChatMessage{Message: "hi", SessionID: "not-a-uuid"},
			fields: []string{"sessionId"},
		},
		{
			name:   "too long",
			req:    ChatMessage{Message: strings.Repeat("あ", DefaultMaxMessageLength+1), SessionID: validSession},
			fields: []string{"message"},
		},
		{
			name:    "limit counts characters not bytes",
			req:     ChatMessage{Message: strings.Repeat("あ", DefaultMaxMessageLength), SessionID: validSession},
			message: strings.Repeat("あ", DefaultMaxMessageLength),
		},
		{
			name:   "invalid utf8",
			req:    ChatMessage{Message: "\xff\xfe", SessionID: validSession},
			fields: []string{"message"},
		},
		{
			name:   "bad user id",
			req:    ChatMessage{Message: "hi", SessionID: validSession, UserID: "../etc"},
			fields: []string{"userId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ChatMessage(tt.req)
			if tt.fields != nil {
				assert.Equal(t, tt.fields, fields(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.req.SessionID, got.SessionID)
		})
	}
}

func TestWithMaxMessageLength(t *testing.T) {
	v := New(WithMaxMessageLength(5))
	assert.Equal(t, 5, v.MaxMessageLength())

	_, err := v.ChatMessage(ChatMessage{Message: "123456", SessionID: validSession})
	assert.Equal(t, []string{"message"}, fields(t, err))

	assert.Equal(t, DefaultMaxMessageLength, New(WithMaxMessageLength(0)).MaxMessageLength())
}

func TestNewTask(t *testing.T) {
	v := New()

	got, err := v.NewTask(NewTask{Name: "  様式1の作成 ", Description: "担当: 総務"})
	require.NoError(t, err)
	assert.Equal(t, "様式1の作成", got.Name)

	_, err = v.NewTask(NewTask{Name: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "タスク名は必須です", verr.Details[0].Message)
}

func TestTaskStatus(t *testing.T) {
	s, err := TaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, s)

	_, err = TaskStatus("done")
	assert.Equal(t, []string{"status"}, fields(t, err))
}

func TestUserID(t *testing.T) {
	assert.NoError(t, UserID("user_42"))
	assert.Error(t, UserID(""))
	assert.Error(t, UserID("a b"))
	assert.Error(t, UserID(".."))
	assert.Error(t, UserID(strings.Repeat("x", 129)))
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "hello", "hello", nil},
		{"keeps whitespace controls", "a\tb\r\nc", "a\tb\r\nc", nil},
		{"strips escape and bell", "a\x1bb\x07c", "abc", nil},
		{"invalid utf8", "a\xffb", "", ErrInvalidUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Details: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	assert.Equal(t, "invalid request data: a: x; b: y", err.Error())
}
