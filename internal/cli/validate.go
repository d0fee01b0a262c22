package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvwenger/bayes-zeeman-hi/internal/compiler"
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// ValidationIssue is one problem found in a model file.
type ValidationIssue struct {
	Model   string `json:"model,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Models []string          `json:"models,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model.cue|models-dir>",
		Short: "Validate model configurations",
		Long: `Validate CUE model configurations without evaluating them.

Compiles every model under the top-level "model" struct against the
embedded schema, then checks cloud counts, background temperature and
prior bounds the way model construction does.

Exit codes:
  0 - All models valid
  1 - One or more models invalid
  2 - Command error (path not found, no CUE files)

Examples:
  zeemanhi validate ./models.cue
  zeemanhi validate ./models --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, err := LoadModels(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.IsCompileFailure() {
			return outputValidationErrors(formatter, []ValidationIssue{{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    loadErr.Line(),
			}})
		}
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	issues, names := validateAll(loadResult.Models, formatter)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}
	return outputValidateSuccess(formatter, names)
}

// validateAll runs schema validation on every compiled model.
func validateAll(specs []ir.ModelSpec, formatter *OutputFormatter) ([]ValidationIssue, []string) {
	var (
		issues []ValidationIssue
		names  []string
	)
	for i := range specs {
		formatter.VerboseLog("Validating model: %s", specs[i].Name)
		names = append(names, specs[i].Name)
		for _, ve := range compiler.Validate(&specs[i]) {
			issues = append(issues, ValidationIssue{
				Model:   specs[i].Name,
				Field:   ve.Field,
				Message: ve.Message,
				Code:    ve.Code,
			})
		}
	}
	return issues, names
}

// outputLoadError reports a failure to locate or read model files.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Error())
	}
	return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, names []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Models: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ All models valid (%d)\n", len(names))
	for _, name := range names {
		formatter.VerboseLog("  %s", name)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.Format == "json" {
		err := writeJSON(formatter.Writer, CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		switch {
		case issue.Line > 0:
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		case issue.Model != "":
			fmt.Fprintf(formatter.Writer, "model %s\n", issue.Model)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
	}

	return failure
}
