package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/convoy/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Fleet    string                   `json:"fleet,omitempty"`
	Hash     string                   `json:"config_hash,omitempty"`
	Products int                      `json:"products,omitempty"`
	Stores   int                      `json:"stores,omitempty"`
	Carriers int                      `json:"carriers,omitempty"`
	Errors   []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <fleet-file>",
		Short: "Validate a fleet file without running it",
		Long: `Validate a YAML or CUE fleet file against the fleet schema and check
its cross-references: duplicate ids, demand for unknown products, inverted
time windows and inconsistent model parameters.

Every problem is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, fleetFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(fleetFile); err != nil {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("fleet file not found: %s", fleetFile), nil)
	}

	formatter.VerboseLog("Validating %s", fleetFile)
	fleet, err := config.Load(fleetFile)
	if err != nil {
		var verrs config.Errors
		if errors.As(err, &verrs) {
			return outputValidationErrors(formatter, verrs)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:    true,
		Fleet:    fleet.Name,
		Hash:     fleet.Hash,
		Products: len(fleet.Products),
		Stores:   len(fleet.Stores),
		Carriers: len(fleet.Carriers),
	})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Fleet %q valid: %d products, %d stores, %d carriers\n",
		result.Fleet, result.Products, result.Stores, result.Carriers)
	formatter.VerboseLog("config hash %s", result.Hash)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs config.Errors) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    ErrCodeInvalid,
				Message: errs[0].Error(),
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
