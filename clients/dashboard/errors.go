package dashboard

import (
	"errors"
	"fmt"
)

// ErrNoSelection is returned by a load attempted before any (teacher, week)
// pair has been selected.
var ErrNoSelection = errors.New("no teacher selected")

// LoadError reports a failed snapshot fetch. Callers render a full-panel
// error state; there is no automatic retry.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError is raised client-side before any network call and names
// the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SubmissionError wraps a server rejection or transport failure during trial
// submission. The form stays open with entered data retained.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %v", e.Err)
	}
	return fmt.Sprintf("submission rejected (%d): %s", e.StatusCode, e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
