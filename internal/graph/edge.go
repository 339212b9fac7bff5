package graph

import (
	"time"
	"weak"

	"go.uber.org/zap"
)

// Edge is a directed relationship from a parent node to a child node.
//
// The parent is held through a weak pointer: an edge never keeps its parent
// alive, which breaks the ownership cycle parent -> edges -> edge -> parent.
// The child is held strongly, so a reachable edge keeps its child reachable.
type Edge struct {
	// Immutable after construction.
	id        string
	parent    weak.Pointer[Node]
	parentID  string
	child     *Node
	createdAt time.Time
	graph     *Graph

	lock      rwLock
	deletedAt *time.Time
}

func newEdge(g *Graph, parent, child *Node, at time.Time) *Edge {
	return &Edge{
		id:        g.ids.Generate(),
		parent:    weak.Make(parent),
		parentID:  parent.id,
		child:     child,
		createdAt: at,
		graph:     g,
	}
}

// ID returns the edge's identifier. Two handles are the same edge iff their
// IDs match.
func (e *Edge) ID() string {
	return e.id
}

// CreatedAt returns the creation timestamp.
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// ParentID returns the identifier of the parent, which stays known even after
// the parent itself has been reclaimed.
func (e *Edge) ParentID() string {
	return e.parentID
}

// ChildID returns the identifier of the child.
func (e *Edge) ChildID() string {
	return e.child.id
}

// SameEdge reports whether a and b identify the same edge.
func SameEdge(a, b *Edge) bool {
	return a != nil && b != nil && a.id == b.id
}

// DeletedAt returns the edge's own deletion timestamp and whether it is set.
func (e *Edge) DeletedAt() (time.Time, bool, error) {
	var at time.Time
	var deleted bool
	err := e.read(func() error {
		if e.deletedAt != nil {
			at, deleted = *e.deletedAt, true
		}
		return nil
	})
	return at, deleted, err
}

// IsLive reports whether the edge's own marker is unset, the child is not
// deleted, and the parent still resolves to a node that is not deleted.
//
// Liveness is derived on every call. A poisoned lock on the edge or on
// either endpoint makes the edge not live instead of returning an error.
func (e *Edge) IsLive() bool {
	deleted, err := e.ownDeleted()
	if err != nil {
		e.graph.logger.Warn("treating edge with poisoned lock as not live",
			zap.String("edge_id", e.id),
		)
		return false
	}
	if deleted {
		return false
	}

	if d, err := e.child.deletedState(); err != nil || d {
		return false
	}

	parent := e.parent.Value()
	if parent == nil {
		return false
	}
	if d, err := parent.deletedState(); err != nil || d {
		return false
	}
	return true
}

// Delete sets the edge's own deletion marker. It does not look at either
// endpoint.
func (e *Edge) Delete() error {
	return e.write(func() error {
		if e.deletedAt != nil {
			return newEdgeError(ErrCodeDeleteDeletedEdge, e.id)
		}

		now := e.graph.clock.Now()
		e.deletedAt = &now
		e.graph.record(e.event(EventEdgeDeleted, now))
		return nil
	})
}

// Restore clears the edge's own deletion marker. An edge that is not live
// only because an endpoint is deleted has no marker to clear and fails with
// RestoreNotDeletedEdge.
func (e *Edge) Restore() error {
	return e.write(func() error {
		if e.deletedAt == nil {
			return newEdgeError(ErrCodeRestoreNotDeletedEdge, e.id)
		}

		now := e.graph.clock.Now()
		e.deletedAt = nil
		e.graph.record(e.event(EventEdgeRestored, now))
		return nil
	})
}

// ReadParent resolves the parent back-reference.
func (e *Edge) ReadParent() (*Node, error) {
	parent := e.parent.Value()
	if parent == nil {
		return nil, newEdgeError(ErrCodeWeakReferenceResolutionFailed, e.id)
	}
	return parent, nil
}

// ReadChild returns the child handle.
func (e *Edge) ReadChild() *Node {
	return e.child
}

// connects reports whether the edge leads from parent to child, by identity.
func (e *Edge) connects(parent, child *Node) bool {
	return e.parentID == parent.id && e.child.id == child.id
}

func (e *Edge) ownDeleted() (bool, error) {
	var deleted bool
	err := e.read(func() error {
		deleted = e.deletedAt != nil
		return nil
	})
	return deleted, err
}

func (e *Edge) event(kind EventKind, at time.Time) Event {
	return Event{
		Kind:     kind,
		EntityID: e.id,
		ParentID: e.parentID,
		ChildID:  e.child.id,
		At:       at,
	}
}

func (e *Edge) write(fn func() error) error {
	err := e.lock.write(fn)
	if err == errPoisoned {
		return newEdgeLockFailure(e.id)
	}
	return err
}

func (e *Edge) read(fn func() error) error {
	err := e.lock.read(fn)
	if err == errPoisoned {
		return newEdgeLockFailure(e.id)
	}
	return err
}
