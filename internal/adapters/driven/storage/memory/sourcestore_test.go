package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

func sourceIDs(t *testing.T, store *SourceStore) []string {
	t.Helper()
	list, err := store.List(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func seedSources(t *testing.T, ids ...string) *SourceStore {
	t.Helper()
	store := NewSourceStore()
	for _, id := range ids {
		require.NoError(t, store.Save(context.Background(), domain.Source{
			ID:   id,
			Name: "Source " + id,
			Type: domain.SourceTypeHTTP,
		}))
	}
	return store
}

// TestSourceStore_SaveKeepsOrder tests that new sources append and updates stay in place.
func TestSourceStore_SaveKeepsOrder(t *testing.T) {
	store := seedSources(t, "a", "b", "c")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Source{ID: "b", Name: "Renamed"}))

	assert.Equal(t, []string{"a", "b", "c"}, sourceIDs(t, store))
	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

// TestSourceStore_Get tests lookups by ID.
func TestSourceStore_Get(t *testing.T) {
	store := seedSources(t, "a")
	ctx := context.Background()

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Source a", got.Name)

	got, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, got)
}

// TestSourceStore_GetReturnsCopy tests that callers cannot mutate stored sources.
func TestSourceStore_GetReturnsCopy(t *testing.T) {
	store := seedSources(t, "a")
	ctx := context.Background()

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Source a", again.Name)
}

// TestSourceStore_Delete tests removal, including unknown IDs.
func TestSourceStore_Delete(t *testing.T) {
	store := seedSources(t, "a", "b", "c")
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "b"))
	require.NoError(t, store.Delete(ctx, "missing"))

	assert.Equal(t, []string{"a", "c"}, sourceIDs(t, store))
}

// TestSourceStore_Move tests repositioning sources.
func TestSourceStore_Move(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		position int
		want     []string
	}{
		{name: "to front", id: "c", position: 0, want: []string{"c", "a", "b", "d"}},
		{name: "to back", id: "a", position: 3, want: []string{"b", "c", "d", "a"}},
		{name: "to middle", id: "d", position: 1, want: []string{"a", "d", "b", "c"}},
		{name: "same place", id: "b", position: 1, want: []string{"a", "b", "c", "d"}},
		{name: "past end clamps", id: "a", position: 99, want: []string{"b", "c", "d", "a"}},
		{name: "negative clamps", id: "d", position: -3, want: []string{"d", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedSources(t, "a", "b", "c", "d")
			require.NoError(t, store.Move(context.Background(), tt.id, tt.position))
			assert.Equal(t, tt.want, sourceIDs(t, store))
		})
	}
}

// TestSourceStore_MoveNotFound tests moving an unknown source.
func TestSourceStore_MoveNotFound(t *testing.T) {
	store := seedSources(t, "a")
	err := store.Move(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestSourceStore_ListEmpty tests listing an empty store.
func TestSourceStore_ListEmpty(t *testing.T) {
	list, err := NewSourceStore().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
