package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results for a playbook directory.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Playbooks int      `json:"playbooks"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <playbooks-dir>",
		Short: "Validate playbook definitions without running them",
		Long: `Validate CUE playbook definitions without starting the engine.

Checks decoding, structural rules (at least one trigger and one action,
required per-trigger fields), and reports lint findings such as cron
expressions or regex patterns that would leave a trigger dormant.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadPlaybooks(dir, LoadModeCollectAll)

	// Handle load errors that prevent any result (directory not found, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			if err := formatter.Error(loadErr.Code, loadErr.Message, nil); err != nil {
				return err
			}
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
		}
		if err := formatter.Error(ErrCodeGeneric, loadErrors[0].Error(), nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)
	for _, pb := range loadResult.Playbooks {
		formatter.VerboseLog("Validated playbook: %s", pb.ID)
	}

	result := ValidationResult{
		Valid:     len(loadErrors) == 0,
		Playbooks: len(loadResult.Playbooks),
		Warnings:  loadResult.Warnings,
	}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, err.Error())
	}

	if !result.Valid {
		if err := outputValidationFailure(formatter, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	return outputValidationSuccess(formatter, result)
}

func outputValidationSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d playbook(s) valid\n", result.Playbooks)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w)
	}
	return nil
}

func outputValidationFailure(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Error(ErrCodeInvalid, "validation failed", result)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w)
	}
	return nil
}
