package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/pmguide/internal/adapters/file"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements both ports
var (
	_ ports.ContextStore  = (*file.Store)(nil)
	_ ports.ProgressStore = (*file.Store)(nil)
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunContextStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ProgressContract(t *testing.T) {
	ports.RunProgressStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewConversationContext("s1")))
	require.NoError(t, store.SaveProgress(ctx, domain.NewUserProgress("u1")))

	assert.FileExists(t, filepath.Join(dir, "s1.json"))
	assert.FileExists(t, filepath.Join(dir, "progress", "u1.json"))

	// No temp files are left behind and the progress dir is not a session.
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.ErrorIs(t, store.Save(ctx, id, domain.NewConversationContext(id)), file.ErrInvalidID, id)
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, file.ErrInvalidID, id)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))

	_, err := file.New(dir).Load(context.Background(), "bad")
	assert.ErrorContains(t, err, "failed to unmarshal")
}
