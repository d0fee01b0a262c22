// Package harness runs forward-model scenarios as executable tests.
//
// A scenario binds one model configuration to one observed spectrum,
// evaluates a list of parameter sets through the engine and checks the
// predictions, the likelihood and the recorded run.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model:                      # or model_file: models.cue (+ model_name)
//	  clouds: 1
//	  tbg: 3.5
//	  priors: { fwhm2: 20.0 }   # omitted priors take default values
//	data:
//	  I: { spectral: [...], brightness: [...], noise: [...] }
//	  V: { spectral: [...], brightness: [...], noise: [...] }
//	evaluations:
//	  - physical:
//	      tau_total: [0.5]
//	      fwhm2: [4.0]
//	      velocity: [0.0]
//	      bparallel: [10.0]
//	      leakage_fraction: 0.0
//	  - draws: { tau_total_norm: [-1.0], ... }
//	    expect_error: INVALID_DRAW
//	assertions:
//	  - type: predicted
//	    evaluation: 0
//	    stokes: V
//	    channel: 1
//	    sign: zero
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - quantity: a registered quantity equals the given values
//   - predicted: one channel of predicted Stokes I or V, by value or sign
//   - log_likelihood: the summed Gaussian log-likelihood
//   - stored_quantity: the quantity read back from the store matches every
//     successful evaluation exactly
//
// # Deterministic Testing
//
// All scenarios execute with a deterministic clock and a fixed run token
// so recorded runs and golden snapshots are reproducible.
//
// The harness uses:
//   - Fixed run token (from scenario.run_token or "test-run-default")
//   - Deterministic logical clock (testutil.DeterministicClock)
//   - In-memory SQLite database (isolated per test)
//   - Sequential evaluation (one worker)
//
// Golden snapshots round every float to ten significant digits and twelve
// decimal places.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/concrete.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
