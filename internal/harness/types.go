package harness

import (
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// Outcome is the result of one evaluation step.
type Outcome struct {
	// Seq is the clock value the evaluation was stamped with.
	Seq int64 `json:"seq"`

	// Record is the persisted form. Zero if the evaluation failed.
	Record ir.EvaluationRecord `json:"record"`

	// Evaluation is nil if the evaluation failed.
	Evaluation *model.Evaluation `json:"-"`

	// ErrorCode is the runtime error code of a failed evaluation.
	ErrorCode string `json:"error_code,omitempty"`

	// Err is the error of a failed evaluation.
	Err error `json:"-"`
}

// Failed reports whether the evaluation returned an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expected error matched and every assertion held.
	Pass bool `json:"pass"`

	// RunToken is the token of the recorded run.
	RunToken string `json:"run_token"`

	// Outcomes holds one entry per evaluation step, in order.
	Outcomes []Outcome `json:"outcomes"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
