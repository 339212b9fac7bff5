package graph

import (
	"time"

	"go.uber.org/zap"

	"github.com/roach88/softgraph/internal/clock"
	"github.com/roach88/softgraph/internal/ids"
)

// Clock stamps every transition.
// Implemented by clock.System, clock.Monotonic and testutil.DeterministicClock.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces globally unique opaque identifiers.
// Implemented by ids.UUIDv7Generator (production) and ids.FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Graph is the factory for nodes. It owns the external services every node
// and edge it creates calls into. A Graph holds no references to its nodes;
// reachability is entirely up to the caller's handles.
type Graph struct {
	clock    Clock
	ids      IDGenerator
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithClock sets the clock provider.
func WithClock(c Clock) Option {
	return func(g *Graph) {
		g.clock = c
	}
}

// WithIDGenerator sets the identifier provider.
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) {
		g.ids = gen
	}
}

// WithRecorder sets the transition recorder. Use Recorders to attach several.
func WithRecorder(r Recorder) Option {
	return func(g *Graph) {
		g.recorder = r
	}
}

// WithLogger sets the logger used for transition and lock-failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// New creates a Graph. Without options it stamps with a monotonic system
// clock, identifies with UUIDv7, records nothing and logs nothing.
func New(opts ...Option) *Graph {
	g := &Graph{}
	for _, opt := range opts {
		opt(g)
	}
	if g.clock == nil {
		g.clock = clock.NewMonotonic(clock.System{})
	}
	if g.ids == nil {
		g.ids = ids.UUIDv7Generator{}
	}
	if g.recorder == nil {
		g.recorder = nopRecorder{}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// NewNode creates a live node whose history holds a single Created instance.
func (g *Graph) NewNode(value string) *Node {
	now := g.clock.Now()
	n := &Node{
		id:        g.ids.Generate(),
		createdAt: now,
		graph:     g,
		instances: []Instance{NewCreated(value, now)},
	}

	g.record(Event{Kind: EventNodeCreated, EntityID: n.id, Value: value, At: now})
	return n
}

// Connect makes parent the parent of child. See the package-level Connect.
func (g *Graph) Connect(parent, child *Node) error {
	return Connect(parent, child)
}

func (g *Graph) record(ev Event) {
	g.recorder.Record(ev)
	if ce := g.logger.Check(zap.DebugLevel, "transition"); ce != nil {
		ce.Write(
			zap.String("kind", string(ev.Kind)),
			zap.String("entity_id", ev.EntityID),
			zap.Time("at", ev.At),
		)
	}
}
