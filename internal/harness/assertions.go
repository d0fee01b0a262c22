package harness

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Outcomes []Outcome // All outcomes for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Outcomes) > 0 {
		fmt.Fprintf(&buf, "\nEvaluations:\n")
		for i, o := range e.Outcomes {
			if o.Failed() {
				fmt.Fprintf(&buf, "  [%d] seq=%d error=%s\n", i, o.Seq, o.ErrorCode)
				continue
			}
			fmt.Fprintf(&buf, "  [%d] seq=%d log_likelihood=%g\n", i, o.Seq, o.Record.LogLikelihood)
		}
	}

	return buf.String()
}

// outcomeFor returns the successful outcome an assertion refers to.
func outcomeFor(outcomes []Outcome, a Assertion) (Outcome, error) {
	if a.Evaluation < 0 || a.Evaluation >= len(outcomes) {
		return Outcome{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("evaluation %d", a.Evaluation),
			Actual:   fmt.Sprintf("%d evaluations", len(outcomes)),
		}
	}
	o := outcomes[a.Evaluation]
	if o.Failed() {
		return Outcome{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("evaluation %d to succeed", a.Evaluation),
			Actual:   fmt.Sprintf("error %s: %v", o.ErrorCode, o.Err),
			Outcomes: outcomes,
		}
	}
	return o, nil
}

// assertQuantity checks a registered quantity element-wise.
func assertQuantity(outcomes []Outcome, a Assertion) error {
	o, err := outcomeFor(outcomes, a)
	if err != nil {
		return err
	}

	got, ok := o.Record.Quantity(a.Name)
	if !ok {
		return &AssertionError{
			Type:     AssertQuantity,
			Expected: fmt.Sprintf("quantity %q in evaluation %d", a.Name, a.Evaluation),
			Actual:   "not registered",
			Outcomes: outcomes,
		}
	}

	tol := tolerance(a)
	if len(got) != len(a.Values) || !allClose(got, a.Values, tol) {
		return &AssertionError{
			Type:     AssertQuantity,
			Expected: fmt.Sprintf("%s = %v (tolerance %g)", a.Name, a.Values, tol),
			Actual:   fmt.Sprintf("%s = %v", a.Name, got),
			Outcomes: outcomes,
		}
	}
	return nil
}

// assertPredicted checks one channel of a predicted spectrum, by value or sign.
func assertPredicted(outcomes []Outcome, a Assertion) error {
	o, err := outcomeFor(outcomes, a)
	if err != nil {
		return err
	}

	spectrum := o.Evaluation.Predicted.I
	if a.Stokes == ir.KeyStokesV {
		spectrum = o.Evaluation.Predicted.V
	}
	ch := *a.Channel
	if ch >= len(spectrum) {
		return &AssertionError{
			Type:     AssertPredicted,
			Expected: fmt.Sprintf("channel %d", ch),
			Actual:   fmt.Sprintf("%d channels", len(spectrum)),
		}
	}
	got := spectrum[ch]
	label := fmt.Sprintf("%s[%d]", a.Stokes, ch)

	if a.Value != nil {
		tol := tolerance(a)
		if !within(got, *a.Value, tol) {
			return &AssertionError{
				Type:     AssertPredicted,
				Expected: fmt.Sprintf("%s = %v (tolerance %g)", label, *a.Value, tol),
				Actual:   fmt.Sprintf("%s = %v", label, got),
				Outcomes: outcomes,
			}
		}
		return nil
	}

	var ok bool
	switch a.Sign {
	case SignPositive:
		ok = got > 0
	case SignNegative:
		ok = got < 0
	case SignZero:
		ok = got == 0
	}
	if !ok {
		return &AssertionError{
			Type:     AssertPredicted,
			Expected: fmt.Sprintf("%s %s", label, a.Sign),
			Actual:   fmt.Sprintf("%s = %v", label, got),
			Outcomes: outcomes,
		}
	}
	return nil
}

// assertLogLikelihood checks the summed Gaussian log-likelihood.
func assertLogLikelihood(outcomes []Outcome, a Assertion) error {
	o, err := outcomeFor(outcomes, a)
	if err != nil {
		return err
	}

	tol := tolerance(a)
	if !within(o.Record.LogLikelihood, *a.Value, tol) {
		return &AssertionError{
			Type:     AssertLogLikelihood,
			Expected: fmt.Sprintf("log_likelihood = %v (tolerance %g)", *a.Value, tol),
			Actual:   fmt.Sprintf("log_likelihood = %v", o.Record.LogLikelihood),
			Outcomes: outcomes,
		}
	}
	return nil
}

// assertStoredQuantity reads a quantity back from the store and checks it
// matches every successful evaluation exactly, in seq order.
func assertStoredQuantity(ctx context.Context, st *store.Store, runToken string, outcomes []Outcome, a Assertion) error {
	stored, err := st.ReadQuantity(ctx, runToken, a.Name)
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredQuantity,
			Expected: fmt.Sprintf("read quantity %q", a.Name),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	var want [][]float64
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		values, ok := o.Record.Quantity(a.Name)
		if !ok {
			return &AssertionError{
				Type:     AssertStoredQuantity,
				Expected: fmt.Sprintf("quantity %q in evaluation seq=%d", a.Name, o.Seq),
				Actual:   "not registered",
				Outcomes: outcomes,
			}
		}
		want = append(want, values)
	}

	if len(stored) != len(want) {
		return &AssertionError{
			Type:     AssertStoredQuantity,
			Expected: fmt.Sprintf("%d stored rows of %q", len(want), a.Name),
			Actual:   fmt.Sprintf("%d rows", len(stored)),
			Outcomes: outcomes,
		}
	}
	for i := range want {
		if !allClose(stored[i], want[i], 0) {
			return &AssertionError{
				Type:     AssertStoredQuantity,
				Expected: fmt.Sprintf("row %d of %q = %v", i, a.Name, want[i]),
				Actual:   fmt.Sprintf("%v", stored[i]),
				Outcomes: outcomes,
			}
		}
	}
	return nil
}

func tolerance(a Assertion) float64 {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return DefaultTolerance
}

// within reports whether got is within tol of want. A zero tolerance means
// exact equality.
func within(got, want, tol float64) bool {
	if got == want {
		return true
	}
	return math.Abs(got-want) <= tol
}

func allClose(got, want []float64, tol float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !within(got[i], want[i], tol) {
			return false
		}
	}
	return true
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store    *store.Store
	Ctx      context.Context
	RunToken string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored_quantity assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertQuantity:
			err = assertQuantity(result.Outcomes, assertion)
		case AssertPredicted:
			err = assertPredicted(result.Outcomes, assertion)
		case AssertLogLikelihood:
			err = assertLogLikelihood(result.Outcomes, assertion)
		case AssertStoredQuantity:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_quantity requires database context", i)
			} else {
				err = assertStoredQuantity(actx.Ctx, actx.Store, actx.RunToken, result.Outcomes, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
