package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tvwenger/bayes-zeeman-hi/internal/harness"
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// PredictedEvaluation is the forward-model output for one evaluation step.
type PredictedEvaluation struct {
	Index           int        `json:"index"`
	Error           string     `json:"error,omitempty"`
	ExpectError     string     `json:"expect_error,omitempty"`
	Clouds          *ir.Clouds `json:"clouds,omitempty"`
	LeakageFraction float64    `json:"leakage_fraction"`
	Predicted       *ir.Stokes `json:"predicted,omitempty"`
	LogLikelihood   float64    `json:"log_likelihood"`
	LogPrior        float64    `json:"log_prior"`
}

// PredictResult holds the predictions for every step of a scenario.
type PredictResult struct {
	Scenario    string                `json:"scenario"`
	Model       ir.ModelSpec          `json:"model"`
	ModelHash   string                `json:"model_hash"`
	SpectralI   []float64             `json:"spectral_i"`
	SpectralV   []float64             `json:"spectral_v"`
	Evaluations []PredictedEvaluation `json:"evaluations"`
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <scenario.yaml>",
		Short: "Evaluate the forward model for a scenario",
		Long: `Evaluate the forward model at every evaluation step of a scenario and
print the predicted Stokes I and V spectra with the log-likelihood of the
scenario's data. Assertions are not checked; use "zeemanhi test" for that.

Exit codes:
  0 - Every evaluation succeeded or failed as the scenario expects
  1 - An evaluation failed unexpectedly
  2 - Command error (scenario or model could not be loaded)

Examples:
  zeemanhi predict ./scenarios/concrete.yaml
  zeemanhi predict ./scenarios/two_clouds.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPredict(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return commandError(formatter, ErrCodeScenario, "failed to load scenario", err)
	}
	spec, err := scenario.ModelSpec()
	if err != nil {
		return commandError(formatter, ErrCodeScenario, "failed to resolve model", err)
	}
	m, err := model.New(spec, scenario.Data)
	if err != nil {
		return commandError(formatter, ErrCodeScenario, "failed to build model", err)
	}

	chI, _ := m.Channel(ir.KeyStokesI)
	chV, _ := m.Channel(ir.KeyStokesV)
	result := PredictResult{
		Scenario:    scenario.Name,
		Model:       spec,
		ModelHash:   m.Hash(),
		SpectralI:   chI.Spectral,
		SpectralV:   chV.Spectral,
		Evaluations: make([]PredictedEvaluation, 0, len(scenario.Evaluations)),
	}

	unexpected := 0
	for i, d := range scenario.Draws(spec.Priors) {
		formatter.VerboseLog("Evaluating step %d", i)
		p := PredictedEvaluation{Index: i, ExpectError: scenario.Evaluations[i].ExpectError}

		ev, err := m.Evaluate(d)
		if err != nil {
			p.Error = err.Error()
			if p.ExpectError == "" {
				unexpected++
			}
			result.Evaluations = append(result.Evaluations, p)
			continue
		}
		p.Clouds = &ev.Clouds
		p.LeakageFraction = ev.LeakageFraction
		p.Predicted = &ev.Predicted
		p.LogLikelihood = ev.LogLikelihood
		p.LogPrior = ev.LogPrior
		result.Evaluations = append(result.Evaluations, p)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputPredictText(formatter.Writer, result)
	}

	if unexpected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d evaluation(s) failed", unexpected))
	}
	return nil
}

// outputPredictText prints one table of channels per evaluation.
func outputPredictText(w io.Writer, result PredictResult) {
	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintf(w, "Model: %s (%d cloud(s), tbg=%g K, hash=%s)\n\n",
		result.Model.Name, result.Model.Clouds, result.Model.Tbg, shortHash(result.ModelHash))

	for _, p := range result.Evaluations {
		if p.Error != "" {
			mark := "✗"
			if p.ExpectError != "" {
				mark = "-"
			}
			fmt.Fprintf(w, "%s Evaluation %d: %s\n\n", mark, p.Index, p.Error)
			continue
		}

		fmt.Fprintf(w, "Evaluation %d: log_likelihood=%.10g log_prior=%.10g\n",
			p.Index, p.LogLikelihood, p.LogPrior)
		for k := 0; k < p.Clouds.Len(); k++ {
			fmt.Fprintf(w, "  cloud %d: %s=%.6g %s=%.6g %s=%.6g %s=%.6g\n", k,
				model.NameTauTotal, p.Clouds.TauTotal[k],
				model.NameFWHM2, p.Clouds.FWHM2[k],
				model.NameVelocity, p.Clouds.Velocity[k],
				model.NameBparallel, p.Clouds.Bparallel[k])
		}
		fmt.Fprintf(w, "  %s=%.6g\n", model.NameLeakageFraction, p.LeakageFraction)

		fmt.Fprintf(w, "  %12s %16s %12s %16s\n", "v_I", "I", "v_V", "V")
		rows := max(len(result.SpectralI), len(result.SpectralV))
		for c := 0; c < rows; c++ {
			fmt.Fprintf(w, "  %12s %16s %12s %16s\n",
				cell(result.SpectralI, c), cell(p.Predicted.I, c),
				cell(result.SpectralV, c), cell(p.Predicted.V, c))
		}
		fmt.Fprintln(w)
	}
}

// cell formats values[i], or blank past the end.
func cell(values []float64, i int) string {
	if i >= len(values) {
		return ""
	}
	return fmt.Sprintf("%.8g", values[i])
}
