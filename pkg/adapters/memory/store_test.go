package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/pmguide/pkg/adapters/memory"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	ports.RunContextStoreContract(t, memory.NewStore())
}

func TestStore_ProgressContract(t *testing.T) {
	ports.RunProgressStoreContract(t, memory.NewStore())
}

func TestStore_SaveIsolatesCaller(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	cc := domain.NewConversationContext("s1")
	require.NoError(t, store.Save(ctx, "s1", cc))

	cc.Progress.CurrentStep = "mutated"
	cc.Preferences["x"] = 1

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepInitial, loaded.Progress.CurrentStep)
	assert.NotContains(t, loaded.Preferences, "x")
}

func TestStore_ListSorted(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, id, domain.NewConversationContext(id)))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
