package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRedirect_DoesNotMutateSentinel(t *testing.T) {
	err := ErrForbidden.WithRedirect("/solicitacoes-cliente")

	assert.Equal(t, "/solicitacoes-cliente", err.Redirect)
	assert.Empty(t, ErrForbidden.Redirect)
	assert.Equal(t, http.StatusForbidden, err.HTTPStatus)
}

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNetwork:          http.StatusBadGateway,
		ErrCodeUnauthorized:     http.StatusUnauthorized,
		ErrCodeValidation:       http.StatusBadRequest,
		ErrCodeServerValidation: http.StatusUnprocessableEntity,
		ErrCodeConflict:         http.StatusConflict,
		ErrCodeDatabaseError:    http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestPredicatesSeeWrappedErrors(t *testing.T) {
	err := fmt.Errorf("backend: %w", ErrUnauthorized)

	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNetwork(err))
	assert.Equal(t, ErrCodeUnauthorized, CodeOf(err))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}

func TestValidation_CarriesFields(t *testing.T) {
	err := Validation("Verifique os campos destacados.", map[string]string{"email": "Email inválido"})

	assert.True(t, IsValidation(err))
	assert.Equal(t, "Email inválido", err.Fields["email"])
}
