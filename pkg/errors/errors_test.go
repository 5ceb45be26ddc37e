package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesOriginalByCode(t *testing.T) {
	clone := Clone(ErrForbidden, "only the barangay captain may approve")
	require.NotSame(t, ErrForbidden, clone)
	assert.True(t, errors.Is(clone, ErrForbidden))
	assert.False(t, errors.Is(clone, ErrMissingSignature))
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}

func TestMissingSignatureIsDistinctFromForbidden(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, ErrMissingSignature.Status)
	assert.NotEqual(t, ErrForbidden.Code, ErrMissingSignature.Code)
}

func TestWithFieldsDoesNotMutateBase(t *testing.T) {
	out := WithFields(ErrValidation, "bad", map[string]string{"remarks": "required"})
	assert.Equal(t, "required", out.Fields["remarks"])
	assert.Nil(t, ErrValidation.Fields)
}

func TestFromErrorHidesUnknownErrors(t *testing.T) {
	out := FromError(errors.New("pq: connection refused"))
	assert.Equal(t, ErrInternal.Code, out.Code)
	assert.Equal(t, ErrInternal.Message, out.Message)
	assert.Nil(t, FromError(nil))
}

func TestValidationUsesFieldNames(t *testing.T) {
	type payload struct {
		Remarks string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	out := Validation(err, "invalid payload")

	assert.Equal(t, http.StatusUnprocessableEntity, out.Status)
	assert.Equal(t, "required", out.Fields["remarks"])
	assert.True(t, errors.Is(out, ErrValidation))
}
