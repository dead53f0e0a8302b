package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightbnb/server/internal/models"
)

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"gte=18"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   signup
		field   string
		message string
	}{
		{
			name:  "Valid input",
			input: signup{Name: "Devin Sanders", Email: "devin@example.com", Age: 30},
		},
		{
			name:    "Missing name",
			input:   signup{Email: "devin@example.com", Age: 30},
			field:   "name",
			message: "is required",
		},
		{
			name:    "Malformed email",
			input:   signup{Name: "Devin", Email: "devin", Age: 30},
			field:   "email",
			message: "must be a valid email address",
		},
		{
			name:    "Lower bound",
			input:   signup{Name: "Devin", Email: "devin@example.com", Age: 12},
			field:   "age",
			message: "must be at least 18",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}
