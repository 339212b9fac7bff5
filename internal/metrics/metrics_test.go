package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/softgraph/internal/graph"
)

func TestCollector_CountsGraphTransitions(t *testing.T) {
	c := New()
	g := graph.New(graph.WithRecorder(c))

	p := g.NewNode("p")
	ch := g.NewNode("c")
	require.NoError(t, graph.Connect(p, ch))
	require.NoError(t, p.RemoveChild(ch))
	require.NoError(t, graph.Connect(p, ch))
	require.NoError(t, p.Update("p2"))
	require.NoError(t, ch.Delete())
	require.NoError(t, ch.Restore())

	assert.Equal(t, 2.0, testutil.ToFloat64(c.NodeTransitions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NodeTransitions.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NodeTransitions.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NodeTransitions.WithLabelValues("restored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EdgeTransitions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EdgeTransitions.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EdgeTransitions.WithLabelValues("restored")))
}

func TestCollector_ObserveError(t *testing.T) {
	c := New()
	g := graph.New()
	n := g.NewNode("v")
	other := g.NewNode("w")

	c.ObserveError("remove_child", n.RemoveChild(other))
	c.ObserveError("remove_child", n.RemoveChild(other))
	c.ObserveError("update", errors.New("disk on fire"))
	c.ObserveError("update", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.OperationErrors.WithLabelValues("remove_child", "EdgeNotFound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.OperationErrors.WithLabelValues("update", "other")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.OperationErrors))
}

func TestCollector_PrivateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.Record(graph.Event{Kind: graph.EventNodeCreated})

	assert.Equal(t, 1.0, testutil.ToFloat64(a.NodeTransitions.WithLabelValues("created")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.NodeTransitions))
}

func TestCollector_WriteText(t *testing.T) {
	c := New()
	c.Record(graph.Event{Kind: graph.EventEdgeCreated})

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))

	expected := `
# HELP softgraph_edge_transitions_total Edge state transitions by kind.
# TYPE softgraph_edge_transitions_total counter
softgraph_edge_transitions_total{kind="created"} 1
`
	assert.Contains(t, buf.String(), strings.TrimPrefix(expected, "\n"))
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "softgraph_edge_transitions_total"))
}
