package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories exercises every Store implementation against the same
// contract, mirroring the teacher's practice of table-driving store tests
// over backend constructors rather than duplicating cases per file.
func storeFactories(t *testing.T) map[string]Store {
	t.Helper()

	jsonStore, err := NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { jsonStore.Close() })

	yamlStore, err := NewYAMLFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { yamlStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"jsonl":  jsonStore,
		"yaml":   yamlStore,
	}
}

func TestStore_AppendAndLoad_RoundTrips(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			evts := []*Event{
				{ID: "evt-1", Timestamp: time.Now().UTC().Truncate(time.Second), AgentName: "alpha", Payload: SessionStartedPayload{}},
				{ID: "evt-2", Timestamp: time.Now().UTC().Truncate(time.Second), AgentName: "alpha", ParentEventID: "evt-1", Payload: UserMessagePayload{Content: "hi"}},
			}

			require.NoError(t, store.Append(ctx, "alpha", evts))

			loaded, err := store.Load(ctx, "alpha")
			require.NoError(t, err)
			require.Len(t, loaded, 2)
			assert.Equal(t, "evt-1", loaded[0].ID)
			assert.Equal(t, "evt-2", loaded[1].ID)
			assert.Equal(t, UserMessagePayload{Content: "hi"}, loaded[1].Payload)
		})
	}
}

func TestStore_AppendAcrossCallsAccumulates(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, "beta", []*Event{
				{ID: "evt-1", Payload: SessionStartedPayload{}},
			}))
			require.NoError(t, store.Append(ctx, "beta", []*Event{
				{ID: "evt-2", ParentEventID: "evt-1", Payload: UserMessagePayload{Content: "hi"}},
			}))

			loaded, err := store.Load(ctx, "beta")
			require.NoError(t, err)
			require.Len(t, loaded, 2)
		})
	}
}

func TestStore_AppendEmptyBatchIsNoOp(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, "gamma", nil))

			exists, err := store.Exists(ctx, "gamma")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestStore_LoadUnknownContextIsEmptyNotError(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			loaded, err := store.Load(ctx, "never-seen")
			require.NoError(t, err)
			assert.Empty(t, loaded)
		})
	}
}

func TestStore_ExistsAndList(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, "zeta", []*Event{{ID: "evt-1", Payload: SessionStartedPayload{}}}))
			require.NoError(t, store.Append(ctx, "alpha", []*Event{{ID: "evt-1", Payload: SessionStartedPayload{}}}))

			exists, err := store.Exists(ctx, "zeta")
			require.NoError(t, err)
			assert.True(t, exists)

			names, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha", "zeta"}, names) // List is sorted
		})
	}
}

func TestMemoryStore_LoadReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Append(ctx, "alpha", []*Event{
		{ID: "evt-1", Payload: UserMessagePayload{Content: "hi", Images: []string{"a"}}},
	}))

	loaded, err := store.Load(ctx, "alpha")
	require.NoError(t, err)
	loaded[0].Payload.(UserMessagePayload).Images[0] = "mutated"

	reloaded, err := store.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "a", reloaded[0].Payload.(UserMessagePayload).Images[0])
}

func TestJSONFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewJSONFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "alpha", []*Event{
		{ID: "evt-1", Payload: SessionStartedPayload{}},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewJSONFileStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "evt-1", loaded[0].ID)
}

func TestYAMLFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewYAMLFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "alpha", []*Event{
		{ID: "evt-1", Payload: SessionStartedPayload{}},
		{ID: "evt-2", ParentEventID: "evt-1", Payload: AssistantMessagePayload{Content: "hi"}},
	}))

	reopened, err := NewYAMLFileStore(dir)
	require.NoError(t, err)

	loaded, err := reopened.Load(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, AssistantMessagePayload{Content: "hi"}, loaded[1].Payload)
}

func TestYAMLFileStore_NoStaleTempFilesLeftBehind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewYAMLFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "alpha", []*Event{{ID: "evt-1", Payload: SessionStartedPayload{}}}))
	require.NoError(t, store.Append(ctx, "alpha", []*Event{{ID: "evt-2", ParentEventID: "evt-1", Payload: SessionEndedPayload{}}}))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, names)
}
