package graph

import (
	"sync"
	"testing"

	"github.com/roach88/softgraph/internal/testutil"
)

// memRecorder keeps every recorded event in order.
type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *memRecorder) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *memRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// newTestGraph creates a graph with a deterministic clock and id sequence.
func newTestGraph(t *testing.T, opts ...Option) (*Graph, *memRecorder) {
	t.Helper()
	rec := &memRecorder{}
	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequenceGenerator("id")),
		WithRecorder(rec),
	}
	return New(append(base, opts...)...), rec
}

// panicRecorder panics on the first event of the armed kind.
type panicRecorder struct {
	mu    sync.Mutex
	armed map[EventKind]bool
}

func newPanicRecorder() *panicRecorder {
	return &panicRecorder{armed: make(map[EventKind]bool)}
}

func (r *panicRecorder) arm(kind EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[kind] = true
}

func (r *panicRecorder) Record(ev Event) {
	r.mu.Lock()
	fire := r.armed[ev.Kind]
	delete(r.armed, ev.Kind)
	r.mu.Unlock()
	if fire {
		panic("recorder failure on " + string(ev.Kind))
	}
}
