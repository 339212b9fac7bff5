package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKind_IsNode(t *testing.T) {
	for _, k := range []EventKind{EventNodeCreated, EventNodeUpdated, EventNodeDeleted, EventNodeRestored} {
		assert.True(t, k.IsNode(), k)
	}
	for _, k := range []EventKind{EventEdgeCreated, EventEdgeDeleted, EventEdgeRestored} {
		assert.False(t, k.IsNode(), k)
	}
}

func TestRecorders_FanOutInOrder(t *testing.T) {
	var order []string
	first := RecorderFunc(func(ev Event) { order = append(order, "first:"+string(ev.Kind)) })
	second := RecorderFunc(func(ev Event) { order = append(order, "second:"+string(ev.Kind)) })

	g, _ := newTestGraph(t, WithRecorder(Recorders(first, nil, second)))
	n := g.NewNode("v")
	require.NoError(t, n.Update("w"))

	assert.Equal(t, []string{
		"first:node.created", "second:node.created",
		"first:node.updated", "second:node.updated",
	}, order)
}

func TestRecorder_EventFields(t *testing.T) {
	g, rec := newTestGraph(t)
	p := g.NewNode("p")
	c := g.NewNode("c")
	require.NoError(t, Connect(p, c))
	require.NoError(t, p.Update("p2"))

	require.Len(t, rec.events, 4)
	assert.Equal(t, Event{Kind: EventNodeCreated, EntityID: "id-1", Value: "p", At: p.CreatedAt()}, rec.events[0])

	edge := rec.events[2]
	assert.Equal(t, EventEdgeCreated, edge.Kind)
	assert.Equal(t, "id-3", edge.EntityID)
	assert.Equal(t, "id-1", edge.ParentID)
	assert.Equal(t, "id-2", edge.ChildID)
	assert.Empty(t, edge.Value)

	update := rec.events[3]
	assert.Equal(t, EventNodeUpdated, update.Kind)
	assert.Equal(t, "p2", update.Value)
	assert.True(t, update.At.After(edge.At))
}
