package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintline/internal/domain"
)

type sample struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Priority string `validate:"omitempty,oneof=Low Medium High"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "a", Email: "a@example.com"}))

	err := Struct(sample{Email: "nope", Priority: "Urgent"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "is required", fe["Name"])
	assert.Equal(t, "must be a valid email", fe["Email"])
	assert.Equal(t, "must be one of Low Medium High", fe["Priority"])
	assert.Equal(t, "Email must be a valid email; Name is required; Priority must be one of Low Medium High", err.Error())
}
