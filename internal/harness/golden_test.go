package harness

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// Golden files are regenerated with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"concrete", "two_clouds", "no_clouds"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/no_clouds.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "no_clouds", result))
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{4.245714617988434, 4.245714618},
		{-5777.111326280083, -5777.111326},
		{-2.136523402640478e-09, -2.137e-09},
		{1e-13, 0},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundFloat(tt.in), "roundFloat(%v)", tt.in)
	}
}

func TestSnapshotCanonical(t *testing.T) {
	snapshot := &Snapshot{
		ScenarioName: "snap",
		RunToken:     "run",
		Outcomes: []Outcome{
			{
				Seq: 1,
				Evaluation: &model.Evaluation{
					Clouds: ir.Clouds{
						TauTotal:  []float64{0.5},
						FWHM2:     []float64{4},
						Velocity:  []float64{0},
						Bparallel: []float64{10},
					},
					LeakageFraction: 0.01,
					Predicted:       ir.Stokes{I: []float64{7}, V: []float64{-0.5}},
					LogLikelihood:   -1.25,
					LogPrior:        2,
				},
			},
			{Seq: 2, ErrorCode: "INVALID_DRAW", Err: errors.New("bad")},
		},
	}

	data, err := ir.MarshalCanonical(snapshot)
	require.NoError(t, err)

	want := strings.Join([]string{
		`{"evaluations":[`,
		`{"clouds":{"Bparallel":[10],"fwhm2":[4],"tau_total":[0.5],"velocity":[0]},`,
		`"leakage_fraction":0.01,"log_likelihood":-1.25,"log_prior":2,`,
		`"predicted":{"I":[7],"V":[-0.5]},"seq":1},`,
		`{"error_code":"INVALID_DRAW","seq":2}],`,
		`"run_token":"run","scenario_name":"snap"}`,
	}, "")
	assert.Equal(t, want, string(data))
}
