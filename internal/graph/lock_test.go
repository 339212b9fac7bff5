package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRWLock_WriteErrorDoesNotPoison(t *testing.T) {
	var l rwLock
	boom := errors.New("boom")

	assert.Equal(t, boom, l.write(func() error { return boom }))
	assert.False(t, l.isPoisoned())
	assert.NoError(t, l.read(func() error { return nil }))
}

func TestRWLock_PanicPoisons(t *testing.T) {
	var l rwLock
	assert.Panics(t, func() {
		_ = l.write(func() error { panic("writer died") })
	})

	assert.True(t, l.isPoisoned())
	assert.Equal(t, errPoisoned, l.write(func() error { return nil }))
	assert.Equal(t, errPoisoned, l.read(func() error { return nil }))

	ran := false
	l.readIgnoringPoison(func() { ran = true })
	assert.True(t, ran)
}

func TestRWLock_ReaderPanicDoesNotPoison(t *testing.T) {
	var l rwLock
	assert.Panics(t, func() {
		_ = l.read(func() error { panic("reader died") })
	})
	assert.False(t, l.isPoisoned())
	assert.NoError(t, l.write(func() error { return nil }))
}

// poisonNode panics inside an Update so the node's lock is poisoned.
func poisonNode(t *testing.T, pr *panicRecorder, n *Node) {
	t.Helper()
	pr.arm(EventNodeUpdated)
	require.Panics(t, func() { _ = n.Update("doomed") })
}

func TestNode_PoisonedLockSurfacesOnDirectOperations(t *testing.T) {
	pr := newPanicRecorder()
	g, _ := newTestGraph(t, WithRecorder(pr))
	n := g.NewNode("v")
	poisonNode(t, pr, n)

	err := n.Update("again")
	assert.True(t, IsLockFailure(err))
	assert.Equal(t, "LockFailure", Code(err))

	_, err = n.Value()
	assert.ErrorIs(t, err, ErrNodeLockFailure)
	_, err = n.History()
	assert.ErrorIs(t, err, ErrNodeLockFailure)
	_, err = n.EdgeCount()
	assert.ErrorIs(t, err, ErrNodeLockFailure)
	_, err = n.Snapshot()
	assert.ErrorIs(t, err, ErrNodeLockFailure)
	assert.ErrorIs(t, n.Delete(), ErrNodeLockFailure)
	assert.ErrorIs(t, n.Restore(), ErrNodeLockFailure)

	// Pure predicates still answer.
	assert.False(t, n.IsDeleted())
	_, deleted := n.DeletedAt()
	assert.False(t, deleted)
}

func TestNode_PoisonedNeighbourIsAbsentFromTraversal(t *testing.T) {
	pr := newPanicRecorder()
	core, logs := observer.New(zap.WarnLevel)
	g, _ := newTestGraph(t, WithRecorder(pr), WithLogger(zap.New(core)))
	p, c, e := connected(t, g)

	poisonNode(t, pr, c)

	assert.False(t, e.IsLive())
	assert.False(t, p.IsParentOf(c))
	count, err := p.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Len(t, slices.Collect(p.DeadEdges()), 1)

	assert.Empty(t, slices.Collect(c.Edges()))
	assert.Equal(t, 1, logs.FilterMessage("treating edges of poisoned node as absent").Len())

	err = Connect(p, c)
	assert.ErrorIs(t, err, ErrNodeLockFailure)
}

func TestRemoveChild_PoisonedChildIsAbsent(t *testing.T) {
	pr := newPanicRecorder()
	g, _ := newTestGraph(t, WithRecorder(pr))
	p, c, e := connected(t, g)

	poisonNode(t, pr, c)

	assert.ErrorIs(t, p.RemoveChild(c), ErrEdgeNotFound)
	assert.False(t, IsLockFailure(p.RemoveChild(c)))

	// The edge was only skipped, not deleted.
	_, deleted, err := e.DeletedAt()
	require.NoError(t, err)
	assert.False(t, deleted)

	// The driving node's own poisoned lock is still surfaced.
	poisonNode(t, pr, p)
	assert.ErrorIs(t, p.RemoveChild(c), ErrNodeLockFailure)
}

func TestConnect_ParentFailureReportedBeforeChildLock(t *testing.T) {
	pr := newPanicRecorder()
	g, _ := newTestGraph(t, WithRecorder(pr))
	// The child sorts first, so the pair lock would take it first.
	c := g.NewNode("c")
	p := g.NewNode("p")
	require.Less(t, c.ID(), p.ID())

	require.NoError(t, p.Delete())
	poisonNode(t, pr, c)

	err := Connect(p, c)
	assert.ErrorIs(t, err, ErrOperationOnDeletedNode)
	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, p.ID(), ne.NodeID)

	require.NoError(t, p.Restore())
	assert.ErrorIs(t, Connect(p, c), ErrNodeLockFailure)
}

func TestEdge_PoisonedLock(t *testing.T) {
	pr := newPanicRecorder()
	core, logs := observer.New(zap.WarnLevel)
	g, _ := newTestGraph(t, WithRecorder(pr), WithLogger(zap.New(core)))
	p, c, e := connected(t, g)

	pr.arm(EventEdgeDeleted)
	require.Panics(t, func() { _ = e.Delete() })

	assert.False(t, e.IsLive())
	assert.Equal(t, 1, logs.FilterMessage("treating edge with poisoned lock as not live").Len())

	assert.ErrorIs(t, e.Restore(), ErrEdgeLockFailure)
	assert.ErrorIs(t, e.Delete(), ErrEdgeLockFailure)
	_, _, err := e.DeletedAt()
	assert.ErrorIs(t, err, ErrEdgeLockFailure)

	// The endpoints themselves are unaffected.
	count, err := p.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "child", v)

	err = Connect(p, c)
	require.Error(t, err)
	assert.True(t, IsLockFailure(err))
	assert.Equal(t, "LockFailure", Code(err))
	assert.ErrorIs(t, err, ErrEdgeLockFailure)
	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, ErrCodeEdge, ne.Code)
	assert.Equal(t, p.ID(), ne.NodeID)

	assert.ErrorIs(t, p.RemoveChild(c), ErrEdgeNotFound)

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Edges, 1)
	assert.True(t, snap.Edges[0].Poisoned)
	assert.False(t, snap.Edges[0].Live)
}

func TestConnect_PanicPoisonsBothNodes(t *testing.T) {
	pr := newPanicRecorder()
	g, _ := newTestGraph(t, WithRecorder(pr))
	p := g.NewNode("p")
	c := g.NewNode("c")

	pr.arm(EventEdgeCreated)
	require.Panics(t, func() { _ = Connect(p, c) })

	_, err := p.Value()
	assert.ErrorIs(t, err, ErrNodeLockFailure)
	_, err = c.Value()
	assert.ErrorIs(t, err, ErrNodeLockFailure)
	assert.True(t, IsLockFailure(Connect(p, c)))

	// Unrelated nodes keep working.
	other := g.NewNode("other")
	require.NoError(t, other.Update("fine"))
}
