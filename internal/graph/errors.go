package graph

import (
	"errors"
	"fmt"
)

// NodeErrorCode categorizes node-level failures. The set is closed.
type NodeErrorCode string

const (
	// ErrCodeOperationOnEmptyNode indicates a node with no history. Unreachable
	// for nodes built through Graph.NewNode.
	ErrCodeOperationOnEmptyNode NodeErrorCode = "OperationOnEmptyNode"

	// ErrCodeDeleteDeletedNode indicates Delete on a node that is already deleted.
	ErrCodeDeleteDeletedNode NodeErrorCode = "DeleteDeletedNode"

	// ErrCodeOperationOnDeletedNode indicates a mutation of a soft-deleted node.
	ErrCodeOperationOnDeletedNode NodeErrorCode = "OperationOnDeletedNode"

	// ErrCodeRestoreNotDeletedNode indicates Restore on a node that is not deleted.
	ErrCodeRestoreNotDeletedNode NodeErrorCode = "RestoreNotDeletedNode"

	// ErrCodeEdgeNotFound indicates no live edge matched the requested child.
	ErrCodeEdgeNotFound NodeErrorCode = "EdgeNotFound"

	// ErrCodeNodeLockFailure indicates the node's lock was poisoned.
	ErrCodeNodeLockFailure NodeErrorCode = "LockFailure"

	// ErrCodeEdge wraps an EdgeError raised while mutating through a node.
	ErrCodeEdge NodeErrorCode = "Edge"
)

// EdgeErrorCode categorizes edge-level failures. The set is closed.
type EdgeErrorCode string

const (
	// ErrCodeDeleteDeletedEdge indicates Delete on an edge whose own marker is set.
	ErrCodeDeleteDeletedEdge EdgeErrorCode = "DeleteDeletedEdge"

	// ErrCodeRestoreNotDeletedEdge indicates Restore on an edge whose own marker is unset.
	ErrCodeRestoreNotDeletedEdge EdgeErrorCode = "RestoreNotDeletedEdge"

	// ErrCodeEdgeLockFailure indicates the edge's lock was poisoned.
	ErrCodeEdgeLockFailure EdgeErrorCode = "LockFailure"

	// ErrCodeWeakReferenceResolutionFailed indicates the parent back-reference
	// no longer resolves because the parent node was reclaimed.
	ErrCodeWeakReferenceResolutionFailed EdgeErrorCode = "WeakReferenceResolutionFailed"
)

// NodeError is returned by node operations and by Connect.
//
// Only LockFailure carries a free-form Detail. Edge-coded errors carry the
// underlying *EdgeError in Err and unwrap to it.
type NodeError struct {
	// Code identifies the error category.
	Code NodeErrorCode

	// NodeID identifies the node the operation was driven through, when known.
	NodeID string

	// Detail describes a lock failure.
	Detail string

	// Err is the wrapped edge error for ErrCodeEdge.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := nodeMessages[e.Code]
	switch e.Code {
	case ErrCodeEdge:
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	case ErrCodeNodeLockFailure:
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.NodeID != "" {
		return fmt.Sprintf("%s (node=%s)", msg, e.NodeID)
	}
	return msg
}

// Unwrap returns the wrapped edge error, if any.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *NodeError with the same code, so the
// package sentinels match any instance of their kind via errors.Is.
func (e *NodeError) Is(target error) bool {
	t, ok := target.(*NodeError)
	return ok && t.Code == e.Code
}

var nodeMessages = map[NodeErrorCode]string{
	ErrCodeOperationOnEmptyNode:   "cannot perform an operation on an empty node",
	ErrCodeDeleteDeletedNode:      "cannot delete an already deleted node",
	ErrCodeOperationOnDeletedNode: "cannot perform an operation on a deleted node",
	ErrCodeRestoreNotDeletedNode:  "cannot restore a node that is not deleted",
	ErrCodeEdgeNotFound:           "no live edge to the requested child",
	ErrCodeNodeLockFailure:        "node lock failure",
	ErrCodeEdge:                   "edge error",
}

// EdgeError is returned by edge operations.
type EdgeError struct {
	// Code identifies the error category.
	Code EdgeErrorCode

	// EdgeID identifies the edge, when known.
	EdgeID string

	// Detail describes a lock failure.
	Detail string
}

// Error implements the error interface.
func (e *EdgeError) Error() string {
	msg := edgeMessages[e.Code]
	if e.Code == ErrCodeEdgeLockFailure {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.EdgeID != "" {
		return fmt.Sprintf("%s (edge=%s)", msg, e.EdgeID)
	}
	return msg
}

// Is reports whether target is an *EdgeError with the same code.
func (e *EdgeError) Is(target error) bool {
	t, ok := target.(*EdgeError)
	return ok && t.Code == e.Code
}

var edgeMessages = map[EdgeErrorCode]string{
	ErrCodeDeleteDeletedEdge:             "cannot delete an already deleted edge",
	ErrCodeRestoreNotDeletedEdge:         "cannot restore an edge that is not deleted",
	ErrCodeEdgeLockFailure:               "edge lock failure",
	ErrCodeWeakReferenceResolutionFailed: "parent back-reference no longer resolves",
}

// Sentinels for errors.Is. Compare by code only.
var (
	ErrOperationOnEmptyNode   = &NodeError{Code: ErrCodeOperationOnEmptyNode}
	ErrDeleteDeletedNode      = &NodeError{Code: ErrCodeDeleteDeletedNode}
	ErrOperationOnDeletedNode = &NodeError{Code: ErrCodeOperationOnDeletedNode}
	ErrRestoreNotDeletedNode  = &NodeError{Code: ErrCodeRestoreNotDeletedNode}
	ErrEdgeNotFound           = &NodeError{Code: ErrCodeEdgeNotFound}
	ErrNodeLockFailure        = &NodeError{Code: ErrCodeNodeLockFailure}

	ErrDeleteDeletedEdge             = &EdgeError{Code: ErrCodeDeleteDeletedEdge}
	ErrRestoreNotDeletedEdge         = &EdgeError{Code: ErrCodeRestoreNotDeletedEdge}
	ErrEdgeLockFailure               = &EdgeError{Code: ErrCodeEdgeLockFailure}
	ErrWeakReferenceResolutionFailed = &EdgeError{Code: ErrCodeWeakReferenceResolutionFailed}
)

func newNodeError(code NodeErrorCode, nodeID string) *NodeError {
	return &NodeError{Code: code, NodeID: nodeID}
}

func newNodeLockFailure(nodeID string) *NodeError {
	return &NodeError{
		Code:   ErrCodeNodeLockFailure,
		NodeID: nodeID,
		Detail: errPoisoned.Error(),
	}
}

func newEdgeError(code EdgeErrorCode, edgeID string) *EdgeError {
	return &EdgeError{Code: code, EdgeID: edgeID}
}

func newEdgeLockFailure(edgeID string) *EdgeError {
	return &EdgeError{
		Code:   ErrCodeEdgeLockFailure,
		EdgeID: edgeID,
		Detail: errPoisoned.Error(),
	}
}

// wrapEdgeError lifts an edge failure into the node error family.
func wrapEdgeError(nodeID string, err error) error {
	if err == nil {
		return nil
	}
	return &NodeError{Code: ErrCodeEdge, NodeID: nodeID, Err: err}
}

// IsLockFailure returns true if err is a node or edge lock failure, including
// an edge lock failure wrapped by a node error.
func IsLockFailure(err error) bool {
	return errors.Is(err, ErrNodeLockFailure) || errors.Is(err, ErrEdgeLockFailure)
}

// IsEdgeNotFound returns true if err reports a missing live edge.
func IsEdgeNotFound(err error) bool {
	return errors.Is(err, ErrEdgeNotFound)
}

// Code returns the most specific error code carried by err: the edge code
// for node errors wrapping an edge failure, otherwise the node or edge code.
// Returns "" for errors outside both families.
func Code(err error) string {
	var ee *EdgeError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return string(ne.Code)
	}
	return ""
}
