package canon

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/softgraph/internal/graph"
	"github.com/roach88/softgraph/internal/testutil"
)

func newGraph() *graph.Graph {
	return graph.New(
		graph.WithClock(testutil.NewDeterministicClock()),
		graph.WithIDGenerator(testutil.NewSequenceGenerator("n")),
	)
}

func TestHashWithDomain(t *testing.T) {
	a := hashWithDomain(DomainNode, []byte("{}"))
	b := hashWithDomain(DomainTrace, []byte("{}"))

	assert.Len(t, a, 64)
	assert.Equal(t, strings.ToLower(a), a)
	assert.NotEqual(t, a, b, "domains separate otherwise identical data")
	assert.Equal(t, a, hashWithDomain(DomainNode, []byte("{}")))
}

func TestNodeDigest_StableAcrossIdenticalRuns(t *testing.T) {
	build := func() graph.NodeSnapshot {
		g := newGraph()
		p := g.NewNode("p")
		c := g.NewNode("c")
		require.NoError(t, graph.Connect(p, c))
		require.NoError(t, p.Update("p2"))
		snap, err := p.Snapshot()
		require.NoError(t, err)
		return snap
	}

	d1, err := NodeDigest(build())
	require.NoError(t, err)
	d2, err := NodeDigest(build())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestNodeDigest_ChangesWithState(t *testing.T) {
	g := newGraph()
	n := g.NewNode("v1")

	before, err := n.Snapshot()
	require.NoError(t, err)
	require.NoError(t, n.Delete())
	after, err := n.Snapshot()
	require.NoError(t, err)

	d1, err := NodeDigest(before)
	require.NoError(t, err)
	d2, err := NodeDigest(after)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestNodeDocument(t *testing.T) {
	g := newGraph()
	p := g.NewNode("p")
	c := g.NewNode("c")
	require.NoError(t, graph.Connect(p, c))
	require.NoError(t, p.RemoveChild(c))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	data, err := Marshal(NodeDocument(snap))
	require.NoError(t, err)

	assert.Equal(t,
		`{"created_at":"2024-01-01T00:00:02Z",`+
			`"edges":[{"child_id":"n-2","created_at":"2024-01-01T00:00:03Z","deleted_at":"2024-01-01T00:00:04Z","id":"n-3","live":false,"parent_id":"n-1"}],`+
			`"id":"n-2",`+
			`"instances":[{"kind":"created","saved_at":"2024-01-01T00:00:02Z","value":"c"}]}`,
		string(data))
}

func TestEventLine(t *testing.T) {
	at := testutil.Epoch.Add(3 * time.Second)

	node, err := EventLine(graph.Event{Kind: graph.EventNodeUpdated, EntityID: "n-1", Value: "", At: at})
	require.NoError(t, err)
	assert.Equal(t, `{"at":"2024-01-01T00:00:03Z","entity_id":"n-1","kind":"node.updated","value":""}`, string(node))

	edge, err := EventLine(graph.Event{
		Kind:     graph.EventEdgeCreated,
		EntityID: "n-3",
		ParentID: "n-1",
		ChildID:  "n-2",
		At:       at,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"at":"2024-01-01T00:00:03Z","child_id":"n-2","entity_id":"n-3","kind":"edge.created","parent_id":"n-1"}`,
		string(edge))
}

func TestTraceDigest(t *testing.T) {
	ev := graph.Event{Kind: graph.EventNodeCreated, EntityID: "n-1", Value: "v", At: testutil.Epoch}

	one, err := TraceDigest([]graph.Event{ev})
	require.NoError(t, err)
	two, err := TraceDigest([]graph.Event{ev, ev})
	require.NoError(t, err)
	empty, err := TraceDigest(nil)
	require.NoError(t, err)

	assert.NotEqual(t, one, two)
	assert.NotEqual(t, one, empty)
}
