package validator

import (
	"testing"

	"herald/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := New().Validate(&loginRequest{Email: "nope", Password: "short"})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, ValidationErrors{
		{Field: "email", Rule: "email"},
		{Field: "password", Rule: "min", Param: "8"},
	}, verrs)
}

func TestValidate_Passes(t *testing.T) {
	assert.NoError(t, New().Validate(&loginRequest{Email: "a@example.com", Password: "long enough"}))
}
