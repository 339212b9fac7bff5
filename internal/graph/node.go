package graph

import (
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Node is a graph entity with an append-only value history and a soft-delete
// marker. A *Node is a shared handle: any number of goroutines may hold it,
// and every access goes through the node's lock.
//
// The edges collection holds every edge the node participates in, as parent
// or as child.
type Node struct {
	// Immutable after construction.
	id        string
	createdAt time.Time
	graph     *Graph

	lock      rwLock
	deletedAt *time.Time
	instances []Instance
	edges     []*Edge
}

// ID returns the node's identifier. Node identity is defined by ID alone.
func (n *Node) ID() string {
	return n.id
}

// CreatedAt returns the creation timestamp.
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// SameNode reports whether a and b identify the same node.
func SameNode(a, b *Node) bool {
	return a != nil && b != nil && a.id == b.id
}

// IsDeleted reports whether the node is soft-deleted. It is a pure predicate
// over the deletion marker and answers even when the lock is poisoned.
func (n *Node) IsDeleted() bool {
	var deleted bool
	n.lock.readIgnoringPoison(func() {
		deleted = n.deletedAt != nil
	})
	return deleted
}

// DeletedAt returns the deletion timestamp and whether the node is deleted.
func (n *Node) DeletedAt() (time.Time, bool) {
	var at time.Time
	var deleted bool
	n.lock.readIgnoringPoison(func() {
		if n.deletedAt != nil {
			at, deleted = *n.deletedAt, true
		}
	})
	return at, deleted
}

// Update appends an Updated instance carrying value.
func (n *Node) Update(value string) error {
	return n.write(func() error {
		if err := n.deletedCheck(); err != nil {
			return err
		}

		now := n.graph.clock.Now()
		n.instances = append(n.instances, NewUpdated(value, now))
		n.graph.record(Event{Kind: EventNodeUpdated, EntityID: n.id, Value: value, At: now})
		return nil
	})
}

// Delete soft-deletes the node and appends a Deleted instance carrying the
// current value forward.
func (n *Node) Delete() error {
	return n.write(func() error {
		if n.deletedAt != nil {
			return newNodeError(ErrCodeDeleteDeletedNode, n.id)
		}
		last, err := n.lastInstance()
		if err != nil {
			return err
		}

		now := n.graph.clock.Now()
		n.deletedAt = &now
		n.instances = append(n.instances, last.DeletedChild(now))
		n.graph.record(Event{Kind: EventNodeDeleted, EntityID: n.id, Value: last.Value, At: now})
		return nil
	})
}

// Restore clears the deletion marker and appends a Restored instance.
func (n *Node) Restore() error {
	return n.write(func() error {
		if n.deletedAt == nil {
			return newNodeError(ErrCodeRestoreNotDeletedNode, n.id)
		}
		last, err := n.lastInstance()
		if err != nil {
			return err
		}

		now := n.graph.clock.Now()
		n.deletedAt = nil
		n.instances = append(n.instances, last.RestoredChild(now))
		n.graph.record(Event{Kind: EventNodeRestored, EntityID: n.id, Value: last.Value, At: now})
		return nil
	})
}

// Value returns the value of the latest instance.
func (n *Node) Value() (string, error) {
	var value string
	err := n.read(func() error {
		last, err := n.lastInstance()
		if err != nil {
			return err
		}
		value = last.Value
		return nil
	})
	return value, err
}

// History returns a copy of the instance sequence, oldest first.
func (n *Node) History() ([]Instance, error) {
	var history []Instance
	err := n.read(func() error {
		history = slices.Clone(n.instances)
		return nil
	})
	return history, err
}

// Edges yields the live edges referencing this node in insertion order.
// Each range over the sequence takes a fresh snapshot, so it is restartable.
//
// Traversal is best-effort: a poisoned node yields nothing and an edge whose
// liveness cannot be read because of a poisoned lock is treated as not live.
func (n *Node) Edges() iter.Seq[*Edge] {
	return n.filterEdges(true)
}

// DeadEdges yields the edges referencing this node that are not live.
// Same snapshot and poisoning rules as Edges.
func (n *Node) DeadEdges() iter.Seq[*Edge] {
	return n.filterEdges(false)
}

func (n *Node) filterEdges(live bool) iter.Seq[*Edge] {
	return func(yield func(*Edge) bool) {
		edges, err := n.edgeSnapshot()
		if err != nil {
			n.graph.logger.Warn("treating edges of poisoned node as absent",
				zap.String("node_id", n.id),
				zap.Error(err),
			)
			return
		}
		for _, e := range edges {
			if e.IsLive() != live {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// EdgeCount returns the number of live edges referencing this node, in
// either direction. A poisoned node lock is reported as an error.
func (n *Node) EdgeCount() (int, error) {
	edges, err := n.edgeSnapshot()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range edges {
		if e.IsLive() {
			count++
		}
	}
	return count, nil
}

// IsParentOf reports whether a live edge leads from this node to other.
func (n *Node) IsParentOf(other *Node) bool {
	if other == nil {
		return false
	}
	for e := range n.Edges() {
		if e.connects(n, other) {
			return true
		}
	}
	return false
}

// EdgeTo returns the edge from this node to child regardless of its
// liveness, or nil if the two were never connected.
func (n *Node) EdgeTo(child *Node) *Edge {
	if child == nil {
		return nil
	}
	edges, err := n.edgeSnapshot()
	if err != nil {
		return nil
	}
	for _, e := range edges {
		if e.connects(n, child) {
			return e
		}
	}
	return nil
}

func (n *Node) write(fn func() error) error {
	err := n.lock.write(fn)
	if err == errPoisoned {
		return newNodeLockFailure(n.id)
	}
	return err
}

func (n *Node) read(fn func() error) error {
	err := n.lock.read(fn)
	if err == errPoisoned {
		return newNodeLockFailure(n.id)
	}
	return err
}

// deletedCheck requires the lock to be held.
func (n *Node) deletedCheck() error {
	if n.deletedAt != nil {
		return newNodeError(ErrCodeOperationOnDeletedNode, n.id)
	}
	return nil
}

// lastInstance requires the lock to be held.
func (n *Node) lastInstance() (Instance, error) {
	if len(n.instances) == 0 {
		return Instance{}, newNodeError(ErrCodeOperationOnEmptyNode, n.id)
	}
	return n.instances[len(n.instances)-1], nil
}

// edgeSnapshot copies the edge collection under the read lock so liveness
// can be evaluated without holding it.
func (n *Node) edgeSnapshot() ([]*Edge, error) {
	var edges []*Edge
	err := n.read(func() error {
		edges = slices.Clone(n.edges)
		return nil
	})
	return edges, err
}

// liveCheck fails with OperationOnDeletedNode if the node is deleted, or
// LockFailure if its lock is poisoned. It takes the read lock itself.
func (n *Node) liveCheck() error {
	deleted, err := n.deletedState()
	if err != nil {
		return err
	}
	if deleted {
		return newNodeError(ErrCodeOperationOnDeletedNode, n.id)
	}
	return nil
}

// deletedState reads the deletion marker, surfacing a poisoned lock.
func (n *Node) deletedState() (bool, error) {
	var deleted bool
	err := n.read(func() error {
		deleted = n.deletedAt != nil
		return nil
	})
	return deleted, err
}

// hasEdge requires the lock to be held.
func (n *Node) hasEdge(e *Edge) bool {
	return slices.ContainsFunc(n.edges, func(existing *Edge) bool {
		return SameEdge(existing, e)
	})
}
