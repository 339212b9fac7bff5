package journal

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/roach88/softgraph/internal/graph"
)

// Recorder adapts a Store to graph.Recorder.
//
// Record runs inside the graph's write section and must not panic, so write
// failures are logged and counted instead of propagated.
type Recorder struct {
	store    *Store
	logger   *zap.Logger
	failures atomic.Int64
}

// NewRecorder returns a recorder appending to store. A nil logger is
// replaced with a no-op logger.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// Record implements graph.Recorder.
func (r *Recorder) Record(ev graph.Event) {
	if _, err := r.store.Append(context.Background(), ev); err != nil {
		r.failures.Add(1)
		r.logger.Error("journal append failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("entity_id", ev.EntityID),
			zap.Error(err),
		)
	}
}

// Failures returns the number of events that could not be journaled.
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}
