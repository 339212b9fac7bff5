package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/softgraph/internal/graph"
	"github.com/roach88/softgraph/internal/testutil"
)

// createTestStore opens a journal in a per-test directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestAppend_AssignsIncreasingSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := testutil.Epoch.Add(time.Second)

	first, err := s.Append(ctx, graph.Event{Kind: graph.EventNodeCreated, EntityID: "n-1", Value: "v", At: at})
	require.NoError(t, err)
	second, err := s.Append(ctx, graph.Event{Kind: graph.EventNodeUpdated, EntityID: "n-1", Value: "w", At: at})
	require.NoError(t, err)

	assert.Greater(t, second, first)
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAppend_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Append(context.Background(), graph.Event{Kind: "node.exploded", EntityID: "n-1", At: testutil.Epoch})
	assert.Error(t, err)
}

func TestReadEntity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := testutil.Epoch.Add(1500 * time.Millisecond)

	events := []graph.Event{
		{Kind: graph.EventNodeCreated, EntityID: "n-1", Value: "a", At: at},
		{Kind: graph.EventNodeCreated, EntityID: "n-2", Value: "b", At: at},
		{Kind: graph.EventNodeDeleted, EntityID: "n-1", Value: "a", At: at.Add(time.Second)},
	}
	for _, ev := range events {
		_, err := s.Append(ctx, ev)
		require.NoError(t, err)
	}

	entries, err := s.ReadEntity(ctx, "n-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, graph.EventNodeCreated, entries[0].Kind)
	assert.Equal(t, graph.EventNodeDeleted, entries[1].Kind)
	assert.Less(t, entries[0].Seq, entries[1].Seq)
	assert.True(t, entries[0].At.Equal(at), "timestamps round-trip with sub-second precision")

	none, err := s.ReadEntity(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestReadNodeEdges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	events := []graph.Event{
		{Kind: graph.EventEdgeCreated, EntityID: "e-1", ParentID: "n-1", ChildID: "n-2", At: testutil.Epoch},
		{Kind: graph.EventEdgeCreated, EntityID: "e-2", ParentID: "n-3", ChildID: "n-1", At: testutil.Epoch},
		{Kind: graph.EventEdgeCreated, EntityID: "e-3", ParentID: "n-2", ChildID: "n-3", At: testutil.Epoch},
	}
	for _, ev := range events {
		_, err := s.Append(ctx, ev)
		require.NoError(t, err)
	}

	entries, err := s.ReadNodeEdges(ctx, "n-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e-1", entries[0].EntityID)
	assert.Equal(t, "e-2", entries[1].EntityID)
}

func TestRecorder_JournalsGraphTransitions(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, nil)
	g := graph.New(
		graph.WithClock(testutil.NewDeterministicClock()),
		graph.WithIDGenerator(testutil.NewSequenceGenerator("id")),
		graph.WithRecorder(rec),
	)

	p := g.NewNode("p")
	c := g.NewNode("c")
	require.NoError(t, graph.Connect(p, c))
	require.NoError(t, p.RemoveChild(c))
	require.NoError(t, graph.Connect(p, c))
	require.NoError(t, p.Update("p2"))

	ctx := context.Background()
	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	kinds := make([]graph.EventKind, len(all))
	for i, e := range all {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []graph.EventKind{
		graph.EventNodeCreated,
		graph.EventNodeCreated,
		graph.EventEdgeCreated,
		graph.EventEdgeDeleted,
		graph.EventEdgeRestored,
		graph.EventNodeUpdated,
	}, kinds)

	edge, err := s.ReadEntity(ctx, "id-3")
	require.NoError(t, err)
	require.Len(t, edge, 3)
	assert.Equal(t, "id-1", edge[0].ParentID)
	assert.Equal(t, "id-2", edge[0].ChildID)
	assert.Equal(t, int64(0), rec.Failures())
}

func TestRecorder_LogsWriteFailures(t *testing.T) {
	s := createTestStore(t)
	core, logs := observer.New(zap.ErrorLevel)
	rec := NewRecorder(s, zap.New(core))
	require.NoError(t, s.Close())

	g := graph.New(graph.WithRecorder(rec))
	n := g.NewNode("v")
	require.NoError(t, n.Update("w"), "journal failures never fail the transition")

	assert.Equal(t, int64(2), rec.Failures())
	assert.Equal(t, 2, logs.FilterMessage("journal append failed").Len())
}
