package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/softgraph/internal/graph"
	"github.com/roach88/softgraph/internal/journal"
	"github.com/roach88/softgraph/internal/metrics"
)

// StressOptions holds flags for the stress command.
type StressOptions struct {
	*RootOptions
	Workers  int
	Ops      int
	Nodes    int
	Seed     uint64
	Database string
}

// StressResult holds the outcome of a stress run.
type StressResult struct {
	Workers    int      `json:"workers"`
	Ops        int      `json:"ops_per_worker"`
	Nodes      int      `json:"nodes"`
	Seed       uint64   `json:"seed"`
	Executed   int64    `json:"executed"`
	Rejected   int64    `json:"rejected"`
	Violations []string `json:"violations"`
}

// stress operations, also used as the op label of the error counter.
const (
	stressConnect     = "connect"
	stressRemoveChild = "remove_child"
	stressUpdate      = "update"
	stressDelete      = "delete"
	stressRestore     = "restore"
	stressEdgeDelete  = "edge_delete"
	stressEdgeRestore = "edge_restore"
)

var stressOps = []string{
	stressConnect, stressRemoveChild, stressUpdate, stressDelete,
	stressRestore, stressEdgeDelete, stressEdgeRestore,
}

// NewStressCommand creates the stress command.
func NewStressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer a small graph from concurrent workers",
		Long: `Run random graph operations from concurrent workers over a small set
of shared nodes, then check that the graph invariants still hold.

Rejected operations (deleting a deleted node, removing a missing edge, ...)
are expected and counted by error code. A lock failure or a broken
invariant fails the run. The Prometheus transition counters are printed at
the end.

Example:
  softgraph stress
  softgraph stress --workers 16 --ops 5000 --nodes 8 --seed 42
  softgraph stress --db ./stress.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 8, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.Ops, "ops", 1000, "operations per worker")
	cmd.Flags().IntVar(&opts.Nodes, "nodes", 6, "number of shared nodes")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed; worker i draws from (seed, i)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append transitions to this SQLite journal")

	return cmd
}

func runStress(opts *StressOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Workers < 1 || opts.Ops < 0 || opts.Nodes < 1 {
		msg := fmt.Sprintf("invalid stress parameters: workers=%d ops=%d nodes=%d", opts.Workers, opts.Ops, opts.Nodes)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	logger, err := newLogger(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.New()
	recorders := []graph.Recorder{collector}
	var rec *journal.Recorder
	if opts.Database != "" {
		store, err := journal.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, "failed to open journal", err.Error())
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("error closing journal", zap.Error(closeErr))
			}
		}()
		rec = journal.NewRecorder(store, logger)
		recorders = append(recorders, rec)
	}

	g := graph.New(
		graph.WithRecorder(graph.Recorders(recorders...)),
		graph.WithLogger(logger),
	)
	nodes := make([]*graph.Node, opts.Nodes)
	for i := range nodes {
		nodes[i] = g.NewNode(fmt.Sprintf("n%d", i))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := StressResult{
		Workers: opts.Workers,
		Ops:     opts.Ops,
		Nodes:   opts.Nodes,
		Seed:    opts.Seed,
	}
	var executed, rejected atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	for w := range opts.Workers {
		eg.Go(func() error {
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(w)))
			for i := range opts.Ops {
				if err := ctx.Err(); err != nil {
					return err
				}
				op := stressOps[rng.IntN(len(stressOps))]
				p := nodes[rng.IntN(len(nodes))]
				c := nodes[rng.IntN(len(nodes))]
				err := applyStressOp(op, p, c, fmt.Sprintf("w%d-%d", w, i))
				executed.Add(1)
				if err == nil {
					continue
				}
				if graph.IsLockFailure(err) {
					return fmt.Errorf("worker %d: %s: %w", w, op, err)
				}
				rejected.Add(1)
				collector.ObserveError(op, err)
			}
			return nil
		})
	}
	waitErr := eg.Wait()
	result.Executed = executed.Load()
	result.Rejected = rejected.Load()

	if waitErr != nil {
		if graph.IsLockFailure(waitErr) {
			_ = formatter.Error(ErrCodeInvariant, "stress run aborted", waitErr.Error())
			return WrapExitError(ExitFailure, "stress run aborted", waitErr)
		}
		formatter.VerboseLog("stress run interrupted: %v", waitErr)
	}

	result.Violations = checkInvariants(nodes)
	if rec != nil && rec.Failures() > 0 {
		result.Violations = append(result.Violations,
			fmt.Sprintf("%d transition(s) were not journaled", rec.Failures()))
	}

	if err := outputStressResult(formatter, result, collector); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if len(result.Violations) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invariant violation(s)", len(result.Violations)))
	}
	return nil
}

// applyStressOp runs one operation with p as the acting node. Edge
// operations act on p's edge to c, if any.
func applyStressOp(op string, p, c *graph.Node, value string) error {
	switch op {
	case stressConnect:
		return graph.Connect(p, c)
	case stressRemoveChild:
		return p.RemoveChild(c)
	case stressUpdate:
		return p.Update(value)
	case stressDelete:
		return p.Delete()
	case stressRestore:
		return p.Restore()
	case stressEdgeDelete:
		if e := p.EdgeTo(c); e != nil {
			return e.Delete()
		}
	case stressEdgeRestore:
		if e := p.EdgeTo(c); e != nil {
			return e.Restore()
		}
	}
	return nil
}

// checkInvariants inspects every node after the workers have stopped.
func checkInvariants(nodes []*graph.Node) []string {
	violations := []string{}
	report := func(n *graph.Node, format string, args ...any) {
		violations = append(violations, n.ID()+": "+fmt.Sprintf(format, args...))
	}

	for _, n := range nodes {
		history, err := n.History()
		if err != nil {
			report(n, "history unreadable: %v", err)
			continue
		}
		if len(history) == 0 || history[0].Kind != graph.KindCreated {
			report(n, "history does not start with a created instance")
		}
		for i := 1; i < len(history); i++ {
			if history[i].SavedAt.Before(history[i-1].SavedAt) {
				report(n, "history timestamp decreases at instance %d", i)
			}
		}
		if len(history) > 0 {
			lastDeleted := history[len(history)-1].Kind == graph.KindDeleted
			if lastDeleted != n.IsDeleted() {
				report(n, "deleted marker %t disagrees with last instance %s", n.IsDeleted(), history[len(history)-1].Kind)
			}
		}

		count, err := n.EdgeCount()
		if err != nil {
			report(n, "edge count unreadable: %v", err)
			continue
		}
		live := 0
		for range n.Edges() {
			live++
		}
		if count != live {
			report(n, "edge count %d but %d live edges traversed", count, live)
		}

		snap, err := n.Snapshot()
		if err != nil {
			report(n, "snapshot failed: %v", err)
			continue
		}
		perChild := make(map[string]int)
		for _, e := range snap.Edges {
			if e.Poisoned {
				report(n, "edge %s has a poisoned lock", e.ID)
			}
			if e.ParentID == n.ID() {
				perChild[e.ChildID]++
			}
		}
		for child, k := range perChild {
			if k > 1 {
				report(n, "%d edges to child %s", k, child)
			}
		}
	}
	return violations
}

func outputStressResult(f *OutputFormatter, result StressResult, collector *metrics.Collector) error {
	if f.Format == "json" {
		if len(result.Violations) > 0 {
			msg := fmt.Sprintf("%d invariant violation(s)", len(result.Violations))
			return f.Failure(ErrCodeInvariant, msg, result)
		}
		return f.Success(result)
	}
	return writeStressText(f.Writer, result, collector)
}

func writeStressText(w io.Writer, result StressResult, collector *metrics.Collector) error {
	fmt.Fprintf(w, "Stress: %d workers x %d ops over %d nodes (seed %d)\n",
		result.Workers, result.Ops, result.Nodes, result.Seed)
	fmt.Fprintf(w, "Executed: %d, Rejected: %d\n", result.Executed, result.Rejected)
	if len(result.Violations) == 0 {
		fmt.Fprintln(w, "✓ invariants hold")
	} else {
		fmt.Fprintf(w, "✗ %d invariant violation(s)\n", len(result.Violations))
		for _, v := range result.Violations {
			fmt.Fprintf(w, "    %s\n", v)
		}
	}
	fmt.Fprintln(w)
	return collector.WriteText(w)
}
