package procedure

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrNoSteps     = errors.New("procedure has no steps")
	ErrUnnamedStep = errors.New("step has no name")
	ErrNilStep     = errors.New("step has no action")
)

// StepError reports which step of a procedure failed.
type StepError struct {
	Procedure string
	Step      string
	Index     int // zero-based position in the procedure
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %d (%s) failed: %v", e.Procedure, e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a new StepError.
func NewStepError(procedure, step string, index int, err error) *StepError {
	return &StepError{
		Procedure: procedure,
		Step:      step,
		Index:     index,
		Err:       err,
	}
}

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// exitCoder is satisfied by *exec.ExitError and anything else that carries
// the exit status of an external command.
type exitCoder interface {
	ExitCode() int
}

// ExitCode maps an error returned by Run to a process exit code.
// A failed external command propagates its own status; a command killed by
// a signal reports -1 and maps to ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		if code := ec.ExitCode(); code > 0 {
			return code
		}
	}
	return ExitFailure
}
