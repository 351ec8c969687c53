package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContextStoreContract runs a suite of tests to verify that a ContextStore implementation
// adheres to the defined interface contract.
func RunContextStoreContract(t *testing.T, store ContextStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		cc := domain.NewConversationContext(sessionID)
		cc.UserID = "user-1"
		cc.Progress.CurrentStep = "submission"
		cc.Progress.CompletedSteps = []string{"preparation", "document_preparation"}
		cc.Preferences["lang"] = "ja"
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		cc.History = append(cc.History,
			domain.Turn{Role: domain.RoleUser, Content: "申請の流れは？", Timestamp: now},
			domain.Turn{Role: domain.RoleAssistant, Content: "ご案内します。", Timestamp: now.Add(time.Millisecond)},
		)

		require.NoError(t, store.Save(ctx, sessionID, cc), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, "user-1", loaded.UserID)
		assert.Equal(t, cc.Progress, loaded.Progress)
		assert.Equal(t, "ja", loaded.Preferences["lang"])
		require.Len(t, loaded.History, 2)
		assert.Equal(t, domain.RoleUser, loaded.History[0].Role)
		assert.Equal(t, "申請の流れは？", loaded.History[0].Content)
		assert.Equal(t, domain.RoleAssistant, loaded.History[1].Role)
		assert.True(t, now.Equal(loaded.History[0].Timestamp), "timestamps survive a round trip")
	})

	t.Run("Save replaces", func(t *testing.T) {
		cc := domain.NewConversationContext(sessionID)
		cc.Progress.CurrentStep = "onsite_audit"
		require.NoError(t, store.Save(ctx, sessionID, cc))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "onsite_audit", loaded.Progress.CurrentStep)
		assert.Empty(t, loaded.History)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Loaded value is independent", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewConversationContext(sessionID)))

		first, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		first.Progress.CompletedSteps = append(first.Progress.CompletedSteps, "mutated")

		second, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, second.Progress.CompletedSteps)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewConversationContext(sessionID)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should not return error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewConversationContext(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewConversationContext(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Concurrent distinct sessions", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				id := sessionID + "-c" + string(rune('a'+n))
				assert.NoError(t, store.Save(ctx, id, domain.NewConversationContext(id)))
				_ = store.Delete(ctx, id)
			}(i)
		}
		wg.Wait()
	})
}

// RunProgressStoreContract verifies a ProgressStore implementation.
func RunProgressStoreContract(t *testing.T, store ProgressStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.LoadProgress(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
		due := start.Add(72 * time.Hour)
		p := domain.NewUserProgress(userID)
		p.CurrentStep = "document_preparation"
		p.CompletedSteps = []string{"preparation"}
		p.StartDate = &start
		p.LastUpdated = &start
		p.Tasks = []domain.Task{
			{ID: "t1", Name: "教育記録の整理", Status: domain.TaskPending, DueDate: &due, CreatedAt: start},
			{ID: "t2", Name: "内部監査", Status: domain.TaskCompleted, CreatedAt: start, CompletedAt: &start},
		}

		require.NoError(t, store.SaveProgress(ctx, p))

		loaded, err := store.LoadProgress(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "document_preparation", loaded.CurrentStep)
		assert.Equal(t, []string{"preparation"}, loaded.CompletedSteps)
		assert.Equal(t, domain.TotalSteps, loaded.TotalSteps)
		require.NotNil(t, loaded.StartDate)
		assert.True(t, start.Equal(*loaded.StartDate))
		require.Len(t, loaded.Tasks, 2)
		assert.Equal(t, "t1", loaded.Tasks[0].ID)
		require.NotNil(t, loaded.Tasks[0].DueDate)
		assert.True(t, due.Equal(*loaded.Tasks[0].DueDate))
		assert.Nil(t, loaded.Tasks[0].CompletedAt)
		assert.Equal(t, domain.TaskCompleted, loaded.Tasks[1].Status)
		require.NotNil(t, loaded.Tasks[1].CompletedAt)
	})

	t.Run("Save replaces tasks", func(t *testing.T) {
		p, err := store.LoadProgress(ctx, userID)
		require.NoError(t, err)
		p.Tasks = p.Tasks[:1]
		require.NoError(t, store.SaveProgress(ctx, p))

		loaded, err := store.LoadProgress(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, loaded.Tasks, 1)
	})
}
