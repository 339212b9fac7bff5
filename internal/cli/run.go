package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/softgraph/internal/harness"
	"github.com/roach88/softgraph/internal/journal"
	"github.com/roach88/softgraph/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Filter   string
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	File string `json:"file"`
	*harness.Result
}

// RunResult holds the outcome of a run command.
type RunResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`

	// JournalFailures counts transitions that could not be written to --db.
	JournalFailures int64 `json:"journal_failures,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file-or-dir>...",
		Short: "Run graph scenarios",
		Long: `Run one or more YAML graph scenarios.

Each scenario executes against a fresh graph with a deterministic clock and
identifier sequence. Steps whose outcome differs from their expect_error and
assertions that do not hold fail the scenario.

With --db every transition is also appended to a SQLite journal that can be
inspected later with 'softgraph trace'.

Example:
  softgraph run ./scenarios
  softgraph run --db ./journal.db --filter 'edge_*' ./scenarios
  softgraph run --format json reconnect.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "append transitions to this SQLite journal")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files whose name matches this glob")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := collectScenarioFiles(paths, opts.Filter)
	if err != nil {
		return outputPathError(formatter, err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeNoScenarios, "no scenario files found", paths)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	logger, err := newLogger(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.New()
	runOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithRecorder(collector),
	}

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
		runOpts = append(runOpts, harness.WithRecorder(rec))
	}

	result := RunResult{Scenarios: make([]ScenarioOutcome, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Running %s", file)
		outcome := runScenarioFile(file, runOpts)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, outcome)
	}
	result.Total = len(result.Scenarios)
	if rec != nil {
		result.JournalFailures = rec.Failures()
	}

	if err := outputRunResult(formatter, result); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	if result.JournalFailures > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%d transition(s) were not journaled", result.JournalFailures))
	}
	return nil
}

// runScenarioFile loads and runs one scenario. Load and binding failures
// are reported as a failed result named after the file.
func runScenarioFile(file string, runOpts []harness.Option) ScenarioOutcome {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		r := harness.NewResult(scenarioName(file))
		r.AddError(err.Error())
		return ScenarioOutcome{File: file, Result: r}
	}

	r, err := harness.Run(scenario, runOpts...)
	if err != nil {
		r = harness.NewResult(scenario.Name)
		r.AddError(err.Error())
	}
	return ScenarioOutcome{File: file, Result: r}
}

func scenarioName(file string) string {
	base := filepath.Base(file)
	return base[:len(base)-len(filepath.Ext(base))]
}

func outputRunResult(f *OutputFormatter, result RunResult) error {
	if f.Format == "json" {
		if result.Failed > 0 {
			msg := fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total)
			return f.Failure(ErrCodeScenarioFail, msg, result)
		}
		return f.Success(result)
	}
	return writeRunText(f.Writer, result, f.Verbose)
}

func writeRunText(w io.Writer, result RunResult, verbose bool) error {
	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s (%d transitions)\n", s.Name, len(s.Trace))
			if verbose {
				fmt.Fprintf(w, "    trace %s\n", s.TraceDigest)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s)\n", s.Name, s.File)
		for _, msg := range s.Errors {
			fmt.Fprintf(w, "    %s\n", msg)
		}
	}
	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "Passed: %d, Failed: %d, Total: %d\n", result.Passed, result.Failed, result.Total)
	if err == nil && result.JournalFailures > 0 {
		_, err = fmt.Fprintf(w, "Journal failures: %d\n", result.JournalFailures)
	}
	return err
}
