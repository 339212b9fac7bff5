// Package graph implements an in-memory, concurrently mutable directed graph
// of versioned nodes joined by soft-deletable edges.
//
// Nodes keep an append-only history of Instances; every Update, Delete and
// Restore appends exactly one. Nothing is ever physically removed: Delete and
// Restore flip markers, and memory is reclaimed only when callers drop their
// last handle.
//
// # Ownership
//
// An Edge holds its child strongly and its parent through a weak pointer, so
// a parent's edge collection (which holds the edge) never forms a strong
// cycle with the edge's back-reference. ReadParent on an edge whose parent
// was reclaimed fails with WeakReferenceResolutionFailed.
//
// Each node's edge collection is mixed: it contains edges where the node is
// the parent and edges where it is the child. Edges, DeadEdges and EdgeCount
// see both directions. IsParentOf, EdgeTo, RemoveChild and Connect's reuse
// search match on both endpoints.
//
// # Liveness
//
// Edge.IsLive is derived on every read: the edge's own marker is unset, the
// child is not deleted, and the parent resolves and is not deleted.
// Edge.Delete and Edge.Restore only touch the edge's own marker, so an edge
// can be not live without being restorable.
//
// # Locking
//
// Every Node and Edge has its own reader/writer lock. A panic inside a write
// section poisons that lock; later acquisitions fail with LockFailure.
// Traversal (Edges, DeadEdges, IsLive, IsParentOf) is best-effort and treats
// poisoned entities as absent, while direct operations surface LockFailure.
//
// Connect is the only operation that holds two node locks. It acquires the
// pair in identifier order, after checking the parent on its own so a
// deleted or poisoned parent is reported before anything about the child.
// RemoveChild locks only the driving node and reads the child's state
// before taking it. Edge locks are leaves: no node lock is acquired while an
// edge lock is held, and traversal copies a node's edge slice before
// evaluating liveness so no lock is ever re-entered.
//
// Cycles, including a node parenting itself, are accepted.
package graph
