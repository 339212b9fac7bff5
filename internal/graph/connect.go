package graph

// Connect makes parent the parent of child.
//
// Both nodes are held exclusively for the whole operation and must not be
// deleted; parent is checked first. A live edge from parent to child makes
// Connect a no-op. An edge from parent to child whose own marker is set is
// restored, keeping its identity. Otherwise one new edge is created and the
// same handle is appended to both nodes' edge collections. Clock, identifier
// and recorder services are taken from the parent's Graph.
//
// Connecting a node to itself is accepted; the edge is stored once.
func Connect(parent, child *Node) error {
	// The pair is locked in identifier order, which may put the child first.
	// Checking the parent up front keeps its failure ahead of the child's.
	if err := parent.liveCheck(); err != nil {
		return err
	}
	return withPair(parent, child, func() error {
		if err := parent.deletedCheck(); err != nil {
			return err
		}
		if err := child.deletedCheck(); err != nil {
			return err
		}

		// Both endpoints are held and known live, so an existing edge's
		// liveness reduces to its own marker.
		var dead *Edge
		for _, e := range parent.edges {
			if !e.connects(parent, child) {
				continue
			}
			deleted, err := e.ownDeleted()
			if err != nil {
				return wrapEdgeError(parent.id, err)
			}
			if !deleted {
				return nil
			}
			if dead == nil {
				dead = e
			}
		}

		if dead != nil {
			if err := dead.Restore(); err != nil {
				return wrapEdgeError(parent.id, err)
			}
			if !child.hasEdge(dead) {
				child.edges = append(child.edges, dead)
			}
			return nil
		}

		g := parent.graph
		now := g.clock.Now()
		e := newEdge(g, parent, child, now)
		parent.edges = append(parent.edges, e)
		if child != parent {
			child.edges = append(child.edges, e)
		}
		g.record(e.event(EventEdgeCreated, now))
		return nil
	})
}

// RemoveChild soft-deletes the live edge from this node to child.
// Fails with OperationOnDeletedNode if this node is deleted and EdgeNotFound
// if no live edge leads to child.
//
// Only this node is locked. The child's deletion state is read beforehand,
// and a child whose lock is poisoned counts as absent, as in traversal.
func (n *Node) RemoveChild(child *Node) error {
	if child == nil {
		return newNodeError(ErrCodeEdgeNotFound, n.id)
	}
	childGone, err := child.deletedState()
	if err != nil {
		childGone = true
	}

	return n.write(func() error {
		if err := n.deletedCheck(); err != nil {
			return err
		}
		if childGone {
			return newNodeError(ErrCodeEdgeNotFound, n.id)
		}

		for _, e := range n.edges {
			if !e.connects(n, child) {
				continue
			}
			deleted, err := e.ownDeleted()
			if err != nil || deleted {
				continue
			}
			return wrapEdgeError(n.id, e.Delete())
		}
		return newNodeError(ErrCodeEdgeNotFound, n.id)
	})
}

// withPair runs fn with both nodes write-locked.
//
// Connect is the only operation that locks two nodes. The pair is
// acquired in identifier order, so two calls over the same pair in opposite
// roles cannot deadlock. A node paired with itself is locked once.
func withPair(a, b *Node, fn func() error) error {
	if a == b {
		return a.write(fn)
	}
	first, second := a, b
	if second.id < first.id {
		first, second = second, first
	}
	return first.write(func() error {
		return second.write(fn)
	})
}
