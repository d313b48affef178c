package calc

import (
	"errors"
	"math"
	"strings"
)

// ErrInvalidInput is matched (via errors.Is) by every validation failure
// returned from this package.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports why a calculation could not be performed. Field
// names the offending input using its JSON name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// requireFinite returns a validation error for the first non-finite value.
// Names and values are paired by position.
func requireFinite(names []string, values ...float64) error {
	for i, v := range values {
		if !isFinite(v) {
			return invalid(names[i], strings.ReplaceAll(names[i], "_", " ")+" must be a finite number")
		}
	}
	return nil
}
