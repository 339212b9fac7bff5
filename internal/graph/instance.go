package graph

import "time"

// InstanceKind tags the lifecycle transition that produced an Instance.
type InstanceKind string

const (
	KindCreated  InstanceKind = "created"
	KindUpdated  InstanceKind = "updated"
	KindDeleted  InstanceKind = "deleted"
	KindRestored InstanceKind = "restored"
)

// Instance is an immutable snapshot of a node's value at a point in time.
// Nodes append one Instance per transition and never discard them.
type Instance struct {
	SavedAt time.Time
	Kind    InstanceKind
	Value   string
}

// NewCreated returns the first Instance of a node.
func NewCreated(value string, at time.Time) Instance {
	return Instance{SavedAt: at, Kind: KindCreated, Value: value}
}

// NewUpdated returns an Instance carrying a new value.
func NewUpdated(value string, at time.Time) Instance {
	return Instance{SavedAt: at, Kind: KindUpdated, Value: value}
}

// DeletedChild copies the value forward under KindDeleted.
func (i Instance) DeletedChild(at time.Time) Instance {
	return Instance{SavedAt: at, Kind: KindDeleted, Value: i.Value}
}

// RestoredChild copies the value forward under KindRestored.
func (i Instance) RestoredChild(at time.Time) Instance {
	return Instance{SavedAt: at, Kind: KindRestored, Value: i.Value}
}
