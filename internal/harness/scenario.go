package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tvwenger/bayes-zeeman-hi/internal/compiler"
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// Scenario defines a forward-model test scenario.
// A scenario binds one model configuration to one observation, evaluates a
// list of parameter sets and asserts on the predictions and the stored run.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is an inline model configuration. Exactly one of Model and
	// ModelFile must be set.
	Model *ModelConfig `yaml:"model,omitempty"`

	// ModelFile is a CUE model file, relative to the scenario file.
	ModelFile string `yaml:"model_file,omitempty"`

	// ModelName selects a model from ModelFile. May be empty if the file
	// declares a single model.
	ModelName string `yaml:"model_name,omitempty"`

	// Data is the observed spectral data container.
	Data ir.SpecData `yaml:"data"`

	// Evaluations are evaluated in order, one clock tick each.
	Evaluations []EvaluationStep `yaml:"evaluations"`

	// Assertions validate the evaluations and the stored run.
	Assertions []Assertion `yaml:"assertions"`

	// RunToken is an optional fixed run token.
	// If empty, defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`
}

// ModelConfig is an inline model configuration. Omitted priors take their
// default values.
type ModelConfig struct {
	Name   string        `yaml:"name,omitempty"`
	Clouds int           `yaml:"clouds"`
	Tbg    *float64      `yaml:"tbg"`
	Priors *PriorsConfig `yaml:"priors,omitempty"`
}

// PriorsConfig overrides individual priors.
type PriorsConfig struct {
	TauTotal        *float64   `yaml:"tau_total,omitempty"`
	FWHM2           *float64   `yaml:"fwhm2,omitempty"`
	Velocity        *ir.Bounds `yaml:"velocity,omitempty"`
	Bparallel       *ir.Bounds `yaml:"bparallel,omitempty"`
	LeakageFraction *float64   `yaml:"leakage_fraction,omitempty"`
}

// Priors merges the overrides onto the defaults.
func (p *PriorsConfig) Priors() ir.Priors {
	out := ir.DefaultPriors()
	if p == nil {
		return out
	}
	if p.TauTotal != nil {
		out.TauTotal = *p.TauTotal
	}
	if p.FWHM2 != nil {
		out.FWHM2 = *p.FWHM2
	}
	if p.Velocity != nil {
		out.Velocity = *p.Velocity
	}
	if p.Bparallel != nil {
		out.Bparallel = *p.Bparallel
	}
	if p.LeakageFraction != nil {
		out.LeakageFraction = *p.LeakageFraction
	}
	return out
}

// EvaluationStep is one parameter set to evaluate. Exactly one of Draws
// and Physical must be set.
type EvaluationStep struct {
	// Draws are standardized draws, passed to the model unchanged.
	Draws *ir.Draws `yaml:"draws,omitempty"`

	// Physical parameters are mapped back to draws through the priors.
	Physical *PhysicalParams `yaml:"physical,omitempty"`

	// ExpectError is the runtime error code the evaluation must fail
	// with (e.g. "INVALID_DRAW"). Empty means the evaluation must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// PhysicalParams are per-cloud physical parameters plus the leakage fraction.
type PhysicalParams struct {
	ir.Clouds       `yaml:",inline"`
	LeakageFraction float64 `yaml:"leakage_fraction"`
}

// Assertion validates one aspect of the scenario outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "quantity": a registered quantity equals Values
	// - "predicted": one channel of predicted Stokes I or V
	// - "log_likelihood": the log-likelihood equals Value
	// - "stored_quantity": the stored run returns the quantity for every
	//   successful evaluation, unchanged
	Type string `yaml:"type"`

	// Evaluation is the index into Evaluations (quantity, predicted,
	// log_likelihood).
	Evaluation int `yaml:"evaluation,omitempty"`

	// Name is the quantity name (quantity, stored_quantity).
	Name string `yaml:"name,omitempty"`

	// Values are the expected quantity values (quantity).
	Values []float64 `yaml:"values,omitempty"`

	// Stokes is "I" or "V" (predicted).
	Stokes string `yaml:"stokes,omitempty"`

	// Channel is the channel index (predicted).
	Channel *int `yaml:"channel,omitempty"`

	// Value is the expected value (predicted, log_likelihood).
	Value *float64 `yaml:"value,omitempty"`

	// Sign is "positive", "negative" or "zero" (predicted).
	Sign string `yaml:"sign,omitempty"`

	// Tolerance is the absolute tolerance for value comparisons.
	// Defaults to DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertQuantity       = "quantity"
	AssertPredicted      = "predicted"
	AssertLogLikelihood  = "log_likelihood"
	AssertStoredQuantity = "stored_quantity"
)

// Sign constants for predicted assertions.
const (
	SignPositive = "positive"
	SignNegative = "negative"
	SignZero     = "zero"
)

// DefaultTolerance is the absolute tolerance used when an assertion does
// not set one.
const DefaultTolerance = 1e-9

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A model_file is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving model_file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ModelFile != "" && !filepath.IsAbs(scenario.ModelFile) && basePath != "" {
		scenario.ModelFile = filepath.Join(basePath, scenario.ModelFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ModelSpec resolves the scenario's model configuration.
func (s *Scenario) ModelSpec() (ir.ModelSpec, error) {
	if s.Model != nil {
		name := s.Model.Name
		if name == "" {
			name = s.Name
		}
		return ir.ModelSpec{
			Name:   name,
			Clouds: s.Model.Clouds,
			Tbg:    *s.Model.Tbg,
			Priors: s.Model.Priors.Priors(),
		}, nil
	}

	specs, err := compiler.LoadModelFile(s.ModelFile)
	if err != nil {
		return ir.ModelSpec{}, err
	}
	return compiler.FindModel(specs, s.ModelName)
}

// Draws returns the standardized draws of every evaluation step.
func (s *Scenario) Draws(p ir.Priors) []ir.Draws {
	out := make([]ir.Draws, len(s.Evaluations))
	for i, step := range s.Evaluations {
		if step.Draws != nil {
			out[i] = *step.Draws
			continue
		}
		out[i] = model.Untransform(p, step.Physical.Clouds, step.Physical.LeakageFraction)
	}
	return out
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Model != nil && s.ModelFile != "":
		return fmt.Errorf("model and model_file are mutually exclusive")
	case s.Model == nil && s.ModelFile == "":
		return fmt.Errorf("one of model or model_file is required")
	case s.Model != nil && s.Model.Tbg == nil:
		return fmt.Errorf("model.tbg is required")
	case s.Model != nil && s.ModelName != "":
		return fmt.Errorf("model_name requires model_file")
	}

	if s.ModelFile != "" {
		if _, err := os.Stat(s.ModelFile); os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", s.ModelFile)
		}
	}

	if len(s.Data) == 0 {
		return fmt.Errorf("data is required")
	}

	if len(s.Evaluations) == 0 {
		return fmt.Errorf("evaluations list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Evaluations {
		if (step.Draws == nil) == (step.Physical == nil) {
			return fmt.Errorf("evaluations[%d]: exactly one of draws or physical is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Evaluations)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, evaluations int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}

	switch a.Type {
	case AssertQuantity, AssertPredicted, AssertLogLikelihood:
		if a.Evaluation < 0 || a.Evaluation >= evaluations {
			return fmt.Errorf("assertions[%d]: evaluation %d out of range [0, %d)", index, a.Evaluation, evaluations)
		}
	}

	switch a.Type {
	case AssertQuantity:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for quantity", index)
		}
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values are required for quantity", index)
		}
	case AssertPredicted:
		if a.Stokes != ir.KeyStokesI && a.Stokes != ir.KeyStokesV {
			return fmt.Errorf("assertions[%d]: stokes must be %q or %q", index, ir.KeyStokesI, ir.KeyStokesV)
		}
		if a.Channel == nil || *a.Channel < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative channel is required for predicted", index)
		}
		if (a.Value == nil) == (a.Sign == "") {
			return fmt.Errorf("assertions[%d]: exactly one of value or sign is required for predicted", index)
		}
		switch a.Sign {
		case "", SignPositive, SignNegative, SignZero:
		default:
			return fmt.Errorf("assertions[%d]: unknown sign %q", index, a.Sign)
		}
	case AssertLogLikelihood:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for log_likelihood", index)
		}
	case AssertStoredQuantity:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for stored_quantity", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
