package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while evaluating or recording.
//
// Runtime errors include:
//   - Invalid draw: a draw lies outside its prior support
//   - Identity failure: the evaluation ID could not be computed
//   - Record failure: the recorder rejected the run or an evaluation
//
// The underlying cause is available through errors.Unwrap, so
// model.IsDrawError keeps working on wrapped invalid-draw errors.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunToken identifies the affected run.
	RunToken string

	// Seq is the clock value reserved for the failed evaluation, or 0.
	Seq int64

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidDraw indicates draws outside the support of their prior.
	ErrCodeInvalidDraw RuntimeErrorCode = "INVALID_DRAW"

	// ErrCodeIdentity indicates the content-addressed ID could not be computed.
	ErrCodeIdentity RuntimeErrorCode = "IDENTITY_FAILED"

	// ErrCodeRecordFailed indicates the recorder returned an error.
	ErrCodeRecordFailed RuntimeErrorCode = "RECORD_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RunToken != "" && e.Seq > 0 {
		return fmt.Sprintf("%s (run=%s, seq=%d)", msg, e.RunToken, e.Seq)
	}
	if e.RunToken != "" {
		return fmt.Sprintf("%s (run=%s)", msg, e.RunToken)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsInvalidDraw returns true if the error is an invalid-draw runtime error.
// Uses errors.As to handle wrapped errors.
func IsInvalidDraw(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidDraw
	}
	return false
}

// IsRecordError returns true if the error is a recording failure.
// Uses errors.As to handle wrapped errors.
func IsRecordError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeRecordFailed
	}
	return false
}
