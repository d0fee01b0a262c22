package harness

import (
	"math"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// Snapshots keep goldenDigits significant digits on a grid of goldenGrid.
// Transcendental functions may differ in the last ulp between platforms,
// and Stokes V near line centre is a difference of nearly equal terms.
const (
	goldenDigits = 10
	goldenGrid   = 1e12
)

// Snapshot captures the physical outcome of a scenario execution.
// Content-addressed IDs and hashes are left out; they are covered by the
// ir package tests.
type Snapshot struct {
	ScenarioName string
	RunToken     string
	Outcomes     []Outcome
}

// CanonicalMap implements ir.Canonicaler.
func (s *Snapshot) CanonicalMap() map[string]any {
	evaluations := make([]any, len(s.Outcomes))
	for i, o := range s.Outcomes {
		if o.Failed() {
			evaluations[i] = map[string]any{
				"seq":        o.Seq,
				"error_code": o.ErrorCode,
			}
			continue
		}
		ev := o.Evaluation
		evaluations[i] = map[string]any{
			"seq": o.Seq,
			"clouds": map[string]any{
				model.NameTauTotal:  round(ev.Clouds.TauTotal),
				model.NameFWHM2:     round(ev.Clouds.FWHM2),
				model.NameVelocity:  round(ev.Clouds.Velocity),
				model.NameBparallel: round(ev.Clouds.Bparallel),
			},
			model.NameLeakageFraction: roundFloat(ev.LeakageFraction),
			"predicted": map[string]any{
				ir.KeyStokesI: round(ev.Predicted.I),
				ir.KeyStokesV: round(ev.Predicted.V),
			},
			"log_likelihood": roundFloat(ev.LogLikelihood),
			"log_prior":      roundFloat(ev.LogPrior),
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_token":     s.RunToken,
		"evaluations":   evaluations,
	}
}

func roundFloat(f float64) float64 {
	f = math.Round(f*goldenGrid) / goldenGrid
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', goldenDigits, 64), 64)
	if err != nil {
		return f
	}
	return r
}

func round(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = roundFloat(v)
	}
	return out
}

// MarshalSnapshot renders the canonical golden form of a result.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(&Snapshot{
		ScenarioName: scenarioName,
		RunToken:     result.RunToken,
		Outcomes:     result.Outcomes,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
