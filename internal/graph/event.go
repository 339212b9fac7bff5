package graph

import "time"

// EventKind names a state transition.
type EventKind string

const (
	EventNodeCreated  EventKind = "node.created"
	EventNodeUpdated  EventKind = "node.updated"
	EventNodeDeleted  EventKind = "node.deleted"
	EventNodeRestored EventKind = "node.restored"
	EventEdgeCreated  EventKind = "edge.created"
	EventEdgeDeleted  EventKind = "edge.deleted"
	EventEdgeRestored EventKind = "edge.restored"
)

// IsNode reports whether the event describes a node transition.
func (k EventKind) IsNode() bool {
	switch k {
	case EventNodeCreated, EventNodeUpdated, EventNodeDeleted, EventNodeRestored:
		return true
	}
	return false
}

// Event describes one transition. Node events carry Value; edge events carry
// ParentID and ChildID.
type Event struct {
	Kind     EventKind
	EntityID string
	ParentID string
	ChildID  string
	Value    string
	At       time.Time
}

// Recorder observes transitions. Record is called while the affected entity
// is write-locked, so events for one entity arrive in history order. A
// Recorder that panics poisons that entity's lock.
type Recorder interface {
	Record(ev Event)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ev Event)

// Record calls f(ev).
func (f RecorderFunc) Record(ev Event) {
	f(ev)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(ev Event) {
	for _, r := range m {
		r.Record(ev)
	}
}

// Recorders fans each event out to every non-nil recorder in order.
func Recorders(recorders ...Recorder) Recorder {
	var m multiRecorder
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}
