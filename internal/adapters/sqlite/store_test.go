package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/pmguide/internal/adapters/sqlite"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ContextStore  = (*sqlite.Store)(nil)
	_ ports.ProgressStore = (*sqlite.Store)(nil)
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "data", "pmguide.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunContextStoreContract(t, openStore(t))
}

func TestSQLiteStore_ProgressContract(t *testing.T) {
	ports.RunProgressStoreContract(t, openStore(t))
}

func TestSQLiteStore_HistoryOrderAndCascade(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	cc := domain.NewConversationContext("s1")
	for i := range 6 {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		cc.History = append(cc.History, domain.Turn{Role: role, Content: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	require.NoError(t, store.Save(ctx, "s1", cc))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.History, 6)
	for i, turn := range loaded.History {
		assert.Equal(t, string(rune('a'+i)), turn.Content)
	}

	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Save(ctx, "s1", domain.NewConversationContext("s1")))

	fresh, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, fresh.History, "history rows are removed with their session")
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmguide.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	cc := domain.NewConversationContext("durable")
	cc.Progress.CurrentStep = "document_review"
	require.NoError(t, store.Save(ctx, "durable", cc))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Ping(ctx))
	loaded, err := reopened.Load(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, "document_review", loaded.Progress.CurrentStep)
}

func TestSQLiteStore_UpdatedAt(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	stamp := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	cc := domain.NewConversationContext("stamped")
	cc.UpdatedAt = stamp
	require.NoError(t, store.Save(ctx, "stamped", cc))

	loaded, err := store.Load(ctx, "stamped")
	require.NoError(t, err)
	assert.True(t, stamp.Equal(loaded.UpdatedAt))
}

func historyRowIDs(t *testing.T, path, sessionID string) []int64 {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT id FROM conversation_history WHERE session_id = ? ORDER BY seq`, sessionID)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func TestSQLiteStore_AppendsOnlyNewTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmguide.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	turn := func(i int) domain.Turn {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		return domain.Turn{Role: role, Content: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Second)}
	}

	cc := domain.NewConversationContext("s1")
	cc.History = append(cc.History, turn(0), turn(1))
	require.NoError(t, store.Save(ctx, "s1", cc))
	first := historyRowIDs(t, path, "s1")
	require.Len(t, first, 2)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	loaded.History = append(loaded.History, turn(2), turn(3))
	require.NoError(t, store.Save(ctx, "s1", loaded))

	second := historyRowIDs(t, path, "s1")
	require.Len(t, second, 4)
	assert.Equal(t, first, second[:2], "stored turns are kept, not rewritten")

	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, again.History, 4)
	for i, tr := range again.History {
		assert.Equal(t, string(rune('a'+i)), tr.Content)
	}

	// A history that does not extend the stored one replaces it.
	other := domain.NewConversationContext("s1")
	edited := turn(3)
	edited.Content = "y"
	other.History = append(other.History, turn(0), turn(1), turn(2), edited, turn(4))
	require.NoError(t, store.Save(ctx, "s1", other))

	replaced, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, replaced.History, 5)
	assert.Equal(t, "y", replaced.History[3].Content)
	assert.Equal(t, "e", replaced.History[4].Content)

	short := domain.NewConversationContext("s1")
	short.History = append(short.History, turn(0))
	require.NoError(t, store.Save(ctx, "s1", short))

	truncated, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, truncated.History, 1)
	assert.Equal(t, "a", truncated.History[0].Content)
}
