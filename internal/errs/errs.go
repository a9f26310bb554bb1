// Package errs defines the error taxonomy shared by the path pipeline.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or missing request data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInfeasibleRequest marks requests no assignment can satisfy.
	ErrInfeasibleRequest = errors.New("infeasible request")
	// ErrOracleFailure marks an infeasible, unknown or timed out minimization.
	ErrOracleFailure = errors.New("oracle failure")
	// ErrGraphConsistency marks a broken graph invariant. It indicates a defect.
	ErrGraphConsistency = errors.New("graph consistency")
)

func InvalidInput(format string, args ...any) error {
	return wrap(ErrInvalidInput, format, args...)
}

func InfeasibleRequest(format string, args ...any) error {
	return wrap(ErrInfeasibleRequest, format, args...)
}

func OracleFailure(format string, args ...any) error {
	return wrap(ErrOracleFailure, format, args...)
}

func GraphConsistency(format string, args ...any) error {
	return wrap(ErrGraphConsistency, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Public returns the message shown to callers outside the service.
// Consistency failures and unclassified errors are reduced to "internal error".
func Public(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGraphConsistency):
		return "internal error"
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInfeasibleRequest),
		errors.Is(err, ErrOracleFailure):
		return err.Error()
	default:
		return "internal error"
	}
}
