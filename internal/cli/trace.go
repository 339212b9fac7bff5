package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/softgraph/internal/canon"
	"github.com/roach88/softgraph/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Entity   string // optional - transitions of one node or edge
	Node     string // optional - transitions of every edge touching a node
}

// TraceEntry is one journaled transition.
type TraceEntry struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id"`
	ParentID string `json:"parent_id,omitempty"`
	ChildID  string `json:"child_id,omitempty"`
	Value    string `json:"value,omitempty"`
	At       string `json:"at"`
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []TraceEntry `json:"entries"`
	Total   int          `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled transitions",
		Long: `Show the transitions journaled by 'softgraph run --db' or
'softgraph stress --db'.

Without filters every transition is listed in journal order. --entity
narrows the listing to one node or edge; --node lists the transitions of
every edge the node is a parent or child of.

Example:
  softgraph trace --db ./journal.db
  softgraph trace --db ./journal.db --entity id-3
  softgraph trace --db ./journal.db --node id-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "only show transitions of this node or edge id")
	cmd.Flags().StringVar(&opts.Node, "node", "", "only show transitions of edges touching this node id")
	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("entity", "node")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Opening would create an empty journal, so a missing file is checked first.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, "journal not found: "+opts.Database, nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	store, err := journal.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, "failed to open journal", err.Error())
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var entries []journal.Entry
	switch {
	case opts.Entity != "":
		entries, err = store.ReadEntity(ctx, opts.Entity)
	case opts.Node != "":
		entries, err = store.ReadNodeEdges(ctx, opts.Node)
	default:
		entries, err = store.ReadAll(ctx)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, "failed to read journal", err.Error())
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	formatter.VerboseLog("Read %d transition(s) from %s", len(entries), opts.Database)

	if formatter.Format == "json" {
		return formatter.Success(buildTraceResult(entries))
	}
	return writeTraceText(formatter.Writer, entries)
}

func buildTraceResult(entries []journal.Entry) TraceResult {
	result := TraceResult{Entries: make([]TraceEntry, 0, len(entries)), Total: len(entries)}
	for _, e := range entries {
		result.Entries = append(result.Entries, TraceEntry{
			Seq:      e.Seq,
			Kind:     string(e.Kind),
			EntityID: e.EntityID,
			ParentID: e.ParentID,
			ChildID:  e.ChildID,
			Value:    e.Value,
			At:       canon.Timestamp(e.At),
		})
	}
	return result
}

// writeTraceText prints one canonical event line per entry, prefixed with
// its journal sequence number.
func writeTraceText(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No transitions found")
		return err
	}
	for _, e := range entries {
		line, err := canon.EventLine(e.Event)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("cannot render entry %d", e.Seq), err)
		}
		fmt.Fprintf(w, "%6d %s\n", e.Seq, line)
	}
	_, err := fmt.Fprintf(w, "\n%d transition(s)\n", len(entries))
	return err
}
