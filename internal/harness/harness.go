package harness

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/softgraph/internal/canon"
	"github.com/roach88/softgraph/internal/graph"
	"github.com/roach88/softgraph/internal/testutil"
)

// Harness executes one scenario against a fresh graph with a deterministic
// clock and identifier sequence, so identical scenarios produce identical
// traces.
type Harness struct {
	graph  *graph.Graph
	trace  *traceRecorder
	logger *zap.Logger

	nodes     map[string]*graph.Node
	edges     map[string]*graph.Edge
	nodeOrder []string
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	recorders []graph.Recorder
	logger    *zap.Logger
}

// WithRecorder attaches an extra recorder (journal, metrics) to the run.
func WithRecorder(r graph.Recorder) Option {
	return func(c *runConfig) {
		c.recorders = append(c.recorders, r)
	}
}

// WithLogger sets the logger handed to the graph and used for step logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// traceRecorder collects events in recording order.
type traceRecorder struct {
	mu     sync.Mutex
	events []graph.Event
}

func (r *traceRecorder) Record(ev graph.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *traceRecorder) snapshot() []graph.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]graph.Event{}, r.events...)
}

// Run executes a scenario and returns its result.
//
// Step failures that differ from the step's expect_error and failed
// assertions are reported in Result.Errors. The returned error is reserved
// for problems with the scenario itself, such as an unbound name.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	trace := &traceRecorder{}
	recorders := append([]graph.Recorder{trace}, cfg.recorders...)

	h := &Harness{
		graph: graph.New(
			graph.WithClock(testutil.NewDeterministicClock()),
			graph.WithIDGenerator(testutil.NewSequenceGenerator("id")),
			graph.WithRecorder(graph.Recorders(recorders...)),
			graph.WithLogger(cfg.logger),
		),
		trace:  trace,
		logger: cfg.logger.With(zap.String("scenario", scenario.Name)),
		nodes:  make(map[string]*graph.Node),
		edges:  make(map[string]*graph.Edge),
	}

	result := NewResult(scenario.Name)
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(h, scenario.Assertions) {
		result.AddError(msg)
	}

	result.Trace = trace.snapshot()
	digest, err := canon.TraceDigest(result.Trace)
	if err != nil {
		return nil, fmt.Errorf("digest trace: %w", err)
	}
	result.TraceDigest = digest
	result.Nodes = h.summarize()

	return result, nil
}

// executeStep applies one step and checks its outcome against expect_error.
func (h *Harness) executeStep(i int, step Step, result *Result) error {
	err := h.apply(step)
	var be *bindingError
	if errors.As(err, &be) {
		return fmt.Errorf("steps[%d] %s: %w", i, step.Op, err)
	}

	got := graph.Code(err)
	if err != nil && got == "" {
		got = err.Error()
	}
	h.logger.Debug("step",
		zap.Int("index", i),
		zap.String("op", step.Op),
		zap.String("error_code", got),
	)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, step.Op, step.ExpectError))
	case step.ExpectError != "" && got != step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %s", i, step.Op, step.ExpectError, got))
	}
	return nil
}

// bindingError reports a name the scenario never bound. It aborts the run
// instead of being compared against expect_error.
type bindingError struct {
	msg string
}

func (e *bindingError) Error() string {
	return e.msg
}

// apply performs the operation and returns the graph's answer.
func (h *Harness) apply(step Step) error {
	switch step.Op {
	case OpNewNode:
		if _, taken := h.nodes[step.As]; taken {
			return &bindingError{msg: fmt.Sprintf("%q is already bound", step.As)}
		}
		h.nodes[step.As] = h.graph.NewNode(step.Value)
		h.nodeOrder = append(h.nodeOrder, step.As)
		return nil

	case OpUpdate, OpDelete, OpRestore:
		n, err := h.node(step.Node)
		if err != nil {
			return err
		}
		switch step.Op {
		case OpUpdate:
			return n.Update(step.Value)
		case OpDelete:
			return n.Delete()
		default:
			return n.Restore()
		}

	case OpConnect:
		parent, child, err := h.pair(step)
		if err != nil {
			return err
		}
		opErr := graph.Connect(parent, child)
		if opErr == nil && step.As != "" {
			h.edges[step.As] = parent.EdgeTo(child)
		}
		return opErr

	case OpDisconnect:
		parent, child, err := h.pair(step)
		if err != nil {
			return err
		}
		return parent.RemoveChild(child)

	case OpDeleteEdge, OpRestoreEdge:
		e, err := h.edge(step.Edge)
		if err != nil {
			return err
		}
		if step.Op == OpDeleteEdge {
			return e.Delete()
		}
		return e.Restore()
	}
	return &bindingError{msg: "unknown op"}
}

func (h *Harness) node(name string) (*graph.Node, error) {
	n, ok := h.nodes[name]
	if !ok {
		return nil, &bindingError{msg: fmt.Sprintf("unknown node %q", name)}
	}
	return n, nil
}

func (h *Harness) edge(name string) (*graph.Edge, error) {
	e, ok := h.edges[name]
	if !ok {
		return nil, &bindingError{msg: fmt.Sprintf("unknown edge %q", name)}
	}
	return e, nil
}

func (h *Harness) pair(step Step) (*graph.Node, *graph.Node, error) {
	parent, err := h.node(step.Parent)
	if err != nil {
		return nil, nil, err
	}
	child, err := h.node(step.Child)
	if err != nil {
		return nil, nil, err
	}
	return parent, child, nil
}

// summarize reads the final state of every bound node.
func (h *Harness) summarize() []NodeSummary {
	summaries := make([]NodeSummary, 0, len(h.nodeOrder))
	for _, name := range h.nodeOrder {
		n := h.nodes[name]
		s := NodeSummary{Name: name, ID: n.ID(), Deleted: n.IsDeleted()}

		snap, err := n.Snapshot()
		if err != nil {
			s.Error = err.Error()
			summaries = append(summaries, s)
			continue
		}
		s.Value = snap.Instances[len(snap.Instances)-1].Value
		for _, e := range snap.Edges {
			if e.Live {
				s.EdgeCount++
			}
		}
		if s.Digest, err = canon.NodeDigest(snap); err != nil {
			s.Error = err.Error()
		}
		summaries = append(summaries, s)
	}
	return summaries
}
