package validator_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/validator"
)

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		valid bool
	}{
		{"reader@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{" padded@example.com ", true},
		{"", false},
		{"no-at-sign.example.com", false},
		{"missing@tld", false},
		{"two@@example.com", false},
		{"spa ce@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()
			err := validator.Apply(validator.ValidEmail("email", tt.email))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, validator.IsValidationError(err))
			}
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.RequiredString("email", "  "),
			validator.RequiredString("password", ""),
			validator.MinLenString("name", "ab", 3),
			validator.MaxLenString("bio", "short", 10),
		)
		errs := validator.ExtractValidationErrors(err)
		require.Len(t, errs, 3)
		assert.Equal(t, []string{"email", "password", "name"}, errs.Fields())
		assert.True(t, errs.Has("password"))
		assert.False(t, errs.Has("bio"))
		assert.Equal(t, []string{"must be at least 3 characters long"}, errs.Get("name"))
		assert.Contains(t, err.Error(), "email: field is required")
	})

	t.Run("nil when all rules pass", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validator.Apply(validator.RequiredString("email", "a@b.co")))
	})

	t.Run("extracts from wrapped errors", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("login: %w", validator.Apply(validator.RequiredString("email", "")))
		assert.True(t, validator.ExtractValidationErrors(err).Has("email"))
		assert.Nil(t, validator.ExtractValidationErrors(nil))
	})
}
