package reservations

import (
	"fmt"
	"strings"
	"time"

	"lightbnb/server/internal/models"
)

const dateLayout = "2006-01-02"

// normalizeDate keeps the calendar date of t at UTC midnight.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date for field.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, models.NewValidationError(field, "is required")
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, models.NewValidationError(field, fmt.Sprintf("must be a date formatted as %s", dateLayout))
	}
	return t, nil
}
