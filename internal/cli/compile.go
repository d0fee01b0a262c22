package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledModel is one model with its content-addressed identity.
type CompiledModel struct {
	Name string       `json:"name"`
	Hash string       `json:"model_hash"`
	Spec ir.ModelSpec `json:"spec"`
}

// CompilationResult holds the compiled models.
type CompilationResult struct {
	Models []CompiledModel `json:"models"`
}

// CanonicalMap implements ir.Canonicaler.
func (r *CompilationResult) CanonicalMap() map[string]any {
	models := make([]any, len(r.Models))
	for i, m := range r.Models {
		models[i] = map[string]any{
			"name":       m.Name,
			"model_hash": m.Hash,
			"spec":       m.Spec.CanonicalMap(),
		}
	}
	return map[string]any{"models": models}
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model.cue|models-dir>",
		Short: "Compile model configurations to canonical IR",
		Long: `Compile CUE model configurations to canonical JSON.

Every model is validated, defaults are filled in for omitted priors and
each model is listed with the hash that identifies its runs in the store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

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

	if issues, _ := validateAll(loadResult.Models, formatter); len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	result := &CompilationResult{Models: make([]CompiledModel, 0, len(loadResult.Models))}
	for _, spec := range loadResult.Models {
		hash, err := ir.ModelHash(spec)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing model %s", spec.Name), err)
		}
		result.Models = append(result.Models, CompiledModel{Name: spec.Name, Hash: hash, Spec: spec})
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return commandError(formatter, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// writeIRToFile writes the canonical JSON form of result.
func writeIRToFile(result *CompilationResult, path string) error {
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return fmt.Errorf("marshal canonical IR: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d model(s)\n\n", len(result.Models))
	for _, m := range result.Models {
		fmt.Fprintf(formatter.Writer, "  %s: %d cloud(s), tbg=%g K, hash=%s\n",
			m.Name, m.Spec.Clouds, m.Spec.Tbg, shortHash(m.Hash))
		formatter.VerboseLog("    priors: tau_total=%g fwhm2=%g velocity=%s bparallel=%s leakage_fraction=%g",
			m.Spec.Priors.TauTotal, m.Spec.Priors.FWHM2, m.Spec.Priors.Velocity,
			m.Spec.Priors.Bparallel, m.Spec.Priors.LeakageFraction)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote canonical IR to %s\n", outputFile)
	}
	return nil
}

// shortHash abbreviates a hash for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
