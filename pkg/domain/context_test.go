package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationContext_Defaults(t *testing.T) {
	a := NewConversationContext("s-1")
	b := NewConversationContext("s-1")

	assert.Equal(t, a, b, "construction must be deterministic given the id")
	assert.Equal(t, StepInitial, a.Progress.CurrentStep)
	assert.Empty(t, a.History)
	assert.NotNil(t, a.History)
	assert.Empty(t, a.Progress.CompletedSteps)
	assert.Empty(t, a.Progress.RemainingTasks)
	assert.NotNil(t, a.Preferences)
}

func TestSnapshot_IsIndependent(t *testing.T) {
	orig := NewConversationContext("s-1")
	orig.History = append(orig.History, Turn{Role: RoleUser, Content: "hi", Timestamp: time.Now()})
	orig.Progress.MarkCompleted("preparation")
	orig.Preferences["nested"] = map[string]any{"lang": "ja"}

	snap := orig.Snapshot()
	snap.History[0].Content = "changed"
	snap.History = append(snap.History, Turn{Role: RoleAssistant, Content: "x"})
	snap.Progress.MarkCompleted("submission")
	snap.Preferences["nested"].(map[string]any)["lang"] = "en"

	require.Len(t, orig.History, 1)
	assert.Equal(t, "hi", orig.History[0].Content)
	assert.Equal(t, []string{"preparation"}, orig.Progress.CompletedSteps)
	assert.Equal(t, "ja", orig.Preferences["nested"].(map[string]any)["lang"])
}

func TestProgress_MarkCompletedIsSet(t *testing.T) {
	p := NewProgress()
	p.MarkCompleted("preparation")
	p.MarkCompleted("preparation")

	assert.Equal(t, []string{"preparation"}, p.CompletedSteps)
	assert.True(t, p.HasCompleted("preparation"))
	assert.False(t, p.HasCompleted("submission"))
}

func TestLastTimestamp(t *testing.T) {
	c := NewConversationContext("s")
	assert.True(t, c.LastTimestamp().IsZero())

	now := time.Now()
	c.History = append(c.History, Turn{Role: RoleUser, Timestamp: now})
	assert.Equal(t, now, c.LastTimestamp())
}
