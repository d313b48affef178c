package calc

import (
	"strconv"
	"strings"
)

// ValidateNumericInput parses a raw form value. Empty, non-numeric, NaN and
// infinite input yields (0, false).
func ValidateNumericInput(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !isFinite(value) {
		return 0, false
	}
	return value, true
}
