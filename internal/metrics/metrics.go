// Package metrics counts graph transitions and operation failures with
// Prometheus collectors.
//
// Every Collector owns a private registry, so several graphs (or tests) in
// one process never collide on metric names.
//
// Thread safety: all operations are safe for concurrent use via Prometheus's
// internal locking.
package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/softgraph/internal/graph"
)

const namespace = "softgraph"

// Collector holds the softgraph counters.
type Collector struct {
	registry *prometheus.Registry

	// NodeTransitions counts node transitions.
	// Labels: kind (created, updated, deleted, restored)
	NodeTransitions *prometheus.CounterVec

	// EdgeTransitions counts edge transitions.
	// Labels: kind (created, deleted, restored)
	EdgeTransitions *prometheus.CounterVec

	// OperationErrors counts failed operations.
	// Labels: op (connect, remove_child, update, ...), code (graph error code or "other")
	OperationErrors *prometheus.CounterVec
}

// New creates a Collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		NodeTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_transitions_total",
				Help:      "Node state transitions by kind.",
			},
			[]string{"kind"},
		),
		EdgeTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edge_transitions_total",
				Help:      "Edge state transitions by kind.",
			},
			[]string{"kind"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_errors_total",
				Help:      "Failed graph operations by operation and error code.",
			},
			[]string{"op", "code"},
		),
	}
}

// Record implements graph.Recorder.
func (c *Collector) Record(ev graph.Event) {
	if kind, ok := strings.CutPrefix(string(ev.Kind), "node."); ok {
		c.NodeTransitions.WithLabelValues(kind).Inc()
		return
	}
	if kind, ok := strings.CutPrefix(string(ev.Kind), "edge."); ok {
		c.EdgeTransitions.WithLabelValues(kind).Inc()
	}
}

// ObserveError counts a failed operation. Nil errors are ignored.
func (c *Collector) ObserveError(op string, err error) {
	if err == nil {
		return
	}
	code := graph.Code(err)
	if code == "" {
		code = "other"
	}
	c.OperationErrors.WithLabelValues(op, code).Inc()
}

// Registry returns the collector's registry, for exposition or tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
