package workflow

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// Error kinds. A *StepError always unwraps to exactly one of these.
var (
	// ErrConfiguration covers invalid patterns and missing required fields
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation covers a bad directory or a directory outside git
	ErrValidation = errors.New("validation error")
	// ErrFileAccess covers per-file read or write failures
	ErrFileAccess = errors.New("file access error")
	// ErrGitOperation covers branch, commit and push failures
	ErrGitOperation = errors.New("git operation error")
	// ErrPullRequest covers pull request creation failures
	ErrPullRequest = errors.New("pull request error")
)

// 💥 StepError is the failure of one state of a run
type StepError struct {
	// Kind is one of the Err* sentinels above
	Kind error
	// State is where the run failed
	State State
	// LastState is the furthest state that completed
	LastState State
	Err       error
}

func newStepError(kind error, state, last State, err error) *StepError {
	return &StepError{Kind: kind, State: state, LastState: last, Err: err}
}

func (e *StepError) Error() string {
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s failed: %v", e.State, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %v", e.State, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// SummaryStatus maps the error kind onto a summary status: "error" for
// problems found before anything ran, "failed" for everything later
func (e *StepError) SummaryStatus() Status {
	if errors.Is(e.Kind, ErrConfiguration) || errors.Is(e.Kind, ErrValidation) {
		return StatusError
	}
	return StatusFailed
}
