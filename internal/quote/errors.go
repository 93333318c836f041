package quote

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned before any scenario is computed when the inputs
	// are structurally incomplete or out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsolvableScenario is returned when the target-profit closed form has no
	// solution for one of the advance percentages. The whole calculation fails.
	ErrUnsolvableScenario = errors.New("unsolvable scenario")

	// ErrUndefinedPercentage is returned when reading a "% on cost" value for a
	// shipment whose cost basis is exactly zero.
	ErrUndefinedPercentage = errors.New("undefined percentage")
)

// FieldError names the input field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// ScenarioError names the advance percentage that could not be solved.
type ScenarioError struct {
	AdvancePct float64
	Reason     string
}

func (e *ScenarioError) Error() string {
	return fmt.Sprintf("%s: advance %g: %s", ErrUnsolvableScenario, e.AdvancePct, e.Reason)
}

func (e *ScenarioError) Unwrap() error { return ErrUnsolvableScenario }
