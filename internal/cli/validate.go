package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/softgraph/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Validate scenarios without running them",
		Long: `Validate YAML graph scenarios without running them.

Each file is decoded strictly (unknown fields are errors), checked against
the embedded CUE scenario schema, and checked for names that are used
before they are bound.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := collectScenarioFiles(paths, "")
	if err != nil {
		return outputPathError(formatter, err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeNoScenarios, "no scenario files found", paths)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	invalid := 0
	for _, file := range files {
		v := FileValidation{File: file, Valid: true}
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			v.Valid = false
			v.Error = err.Error()
			result.Valid = false
			invalid++
		} else {
			v.Name = scenario.Name
			v.Steps = len(scenario.Steps)
			formatter.VerboseLog("%s: %d step(s), %d assertion(s)", file, len(scenario.Steps), len(scenario.Assertions))
		}
		result.Files = append(result.Files, v)
	}

	if err := outputValidationResult(formatter, result, invalid); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario(s)", invalid))
	}
	return nil
}

func outputValidationResult(f *OutputFormatter, result ValidationResult, invalid int) error {
	if f.Format == "json" {
		if !result.Valid {
			return f.Failure(ErrCodeInvalid, fmt.Sprintf("%d invalid scenario(s)", invalid), result)
		}
		return f.Success(result)
	}
	return writeValidationText(f.Writer, result)
}

func writeValidationText(w io.Writer, result ValidationResult) error {
	for _, v := range result.Files {
		if v.Valid {
			fmt.Fprintf(w, "✓ %s (%s, %d steps)\n", v.File, v.Name, v.Steps)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n    %s\n", v.File, v.Error)
	}
	var err error
	if result.Valid {
		_, err = fmt.Fprintln(w, "All scenarios valid")
	} else {
		_, err = fmt.Fprintln(w, "Validation failed")
	}
	return err
}
