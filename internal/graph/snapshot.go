package graph

import (
	"slices"
	"time"
)

// NodeSnapshot is a point-in-time copy of a node, for export and digests.
type NodeSnapshot struct {
	ID        string
	CreatedAt time.Time
	DeletedAt *time.Time
	Instances []Instance
	Edges     []EdgeSnapshot
}

// EdgeSnapshot is a point-in-time copy of one edge as seen from a node.
// Poisoned is set when the edge's lock could not be read; such an edge is
// reported as not live.
type EdgeSnapshot struct {
	ID        string
	ParentID  string
	ChildID   string
	CreatedAt time.Time
	DeletedAt *time.Time
	Live      bool
	Poisoned  bool
}

// Snapshot copies the node's state. Edge states are read after the node's
// lock is released, so they may be marginally newer than the node fields.
func (n *Node) Snapshot() (NodeSnapshot, error) {
	var s NodeSnapshot
	var edges []*Edge
	err := n.read(func() error {
		s = NodeSnapshot{
			ID:        n.id,
			CreatedAt: n.createdAt,
			Instances: slices.Clone(n.instances),
		}
		if n.deletedAt != nil {
			at := *n.deletedAt
			s.DeletedAt = &at
		}
		edges = slices.Clone(n.edges)
		return nil
	})
	if err != nil {
		return NodeSnapshot{}, err
	}

	s.Edges = make([]EdgeSnapshot, 0, len(edges))
	for _, e := range edges {
		es := EdgeSnapshot{
			ID:        e.id,
			ParentID:  e.parentID,
			ChildID:   e.child.id,
			CreatedAt: e.createdAt,
		}
		at, deleted, err := e.DeletedAt()
		if err != nil {
			es.Poisoned = true
		} else {
			if deleted {
				es.DeletedAt = &at
			}
			es.Live = e.IsLive()
		}
		s.Edges = append(s.Edges, es)
	}
	return s, nil
}
