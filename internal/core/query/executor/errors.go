package executor

import (
	"errors"
	"fmt"
)

// Sentinel errors for execution failures.
var (
	// ErrNotValidated is returned when a statement reaches the gateway
	// without a matching successful validation pass.
	ErrNotValidated = errors.New("statement has not been validated")

	// ErrTimeout is returned when execution exceeds its wall-clock budget.
	ErrTimeout = errors.New("execution timed out")

	// ErrPoolExhausted is returned when no pooled connection could be
	// acquired.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrExecution is returned for driver-level failures.
	ErrExecution = errors.New("execution failed")
)

// Failure is a structured execution failure. The driver's message is
// carried where safe; bound parameter values never are, so filter values
// cannot leak into logs.
type Failure struct {
	ConnectionID string
	Cause        error
	Message      string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%v on connection %s: %s", f.Cause, f.ConnectionID, f.Message)
	}
	return fmt.Sprintf("%v on connection %s", f.Cause, f.ConnectionID)
}

// Unwrap returns the underlying sentinel.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Is checks the failure against a sentinel.
func (f *Failure) Is(target error) bool {
	return errors.Is(f.Cause, target)
}

func failure(connectionID string, cause error, message string) *Failure {
	return &Failure{ConnectionID: connectionID, Cause: cause, Message: message}
}

// IsTimeout checks if an error is an execution timeout, so a caller can
// decide to retry with a smaller limit. The engine itself never retries.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNotValidated checks if an error is a sequencing failure.
func IsNotValidated(err error) bool {
	return errors.Is(err, ErrNotValidated)
}
