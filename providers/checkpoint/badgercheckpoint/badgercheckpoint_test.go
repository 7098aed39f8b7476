package badgercheckpoint

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err, "persistent database without a path")

	_, err = Open(Options{InMemory: true, TTL: -1})
	assert.Error(t, err)
}

func TestSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t)

	_, err := store.Load(ctx, "thread-1")
	require.ErrorIs(t, err, graph.ErrCheckpointNotFound)

	saved := graph.Checkpoint{
		ThreadID:     "thread-1",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "10.0.0.1 cannot reach 10.0.0.2"}},
		IncidentData: map[string]any{graph.KeySourceIP: "10.0.0.1"},
		Report:       &graph.Report{RootCause: "ACL", FailedWorkers: []string{"aci"}},
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, saved.Messages, loaded.Messages)
	assert.Equal(t, saved.IncidentData, loaded.IncidentData)
	assert.Equal(t, saved.Report, loaded.Report)

	require.NoError(t, store.Delete(ctx, "thread-1"))
	_, err = store.Load(ctx, "thread-1")
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
}

func TestDocumentsAreCompressed(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t)
	require.NoError(t, store.Save(ctx, graph.Checkpoint{ThreadID: "t"}))

	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key("t"))
		require.NoError(t, err)
		return item.Value(func(value []byte) error {
			document, err := snappy.Decode(nil, value)
			require.NoError(t, err)
			assert.Contains(t, string(document), `"thread_id":"t"`)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestThreads(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t)
	for _, threadID := range []string{"b", "a", "c"} {
		require.NoError(t, store.Save(ctx, graph.Checkpoint{ThreadID: threadID}))
	}

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, threads)
}

func TestRejectsBlankThread(t *testing.T) {
	store := openInMemory(t)
	assert.ErrorIs(t, store.Save(context.Background(), graph.Checkpoint{}), checkpoint.ErrEmptyThreadID)
	assert.ErrorIs(t, store.Delete(context.Background(), ""), checkpoint.ErrEmptyThreadID)
	_, err := store.Load(context.Background(), "")
	assert.ErrorIs(t, err, checkpoint.ErrEmptyThreadID)
}

func TestSaveRejectsBlankThreadBeforeContext(t *testing.T) {
	store := openInMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, graph.Checkpoint{ThreadID: "   "})
	assert.ErrorIs(t, err, checkpoint.ErrEmptyThreadID)

	threads, err := store.Threads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestPersistentReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()

	store, err := Open(Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, graph.Checkpoint{ThreadID: "kept", IncidentData: map[string]any{"k": "v"}}))
	require.NoError(t, store.Close())

	reopened, err := Open(Options{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.IncidentData["k"])
}
