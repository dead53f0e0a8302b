package models

import "math"

// ToCents converts a major-unit amount into minor units. Amounts that are
// not finite, or whose minor units do not fit in an int64, are rejected as
// invalid input for field.
func ToCents(field string, amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, NewValidationError(field, "must be a finite number")
	}
	cents := math.Round(amount * 100)
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if cents >= float64(math.MaxInt64) || cents < float64(math.MinInt64) {
		return 0, NewValidationError(field, "is too large")
	}
	return int64(cents), nil
}
