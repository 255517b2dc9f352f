package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MapsHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:              http.StatusNotFound,
		ErrCodeUnauthorized:          http.StatusUnauthorized,
		ErrCodeForbidden:             http.StatusForbidden,
		ErrCodeValidation:            http.StatusBadRequest,
		ErrCodeInvalidTransition:     http.StatusConflict,
		ErrCodeCapacityExceeded:      http.StatusConflict,
		ErrCodeDuplicateAssignment:   http.StatusConflict,
		ErrCodeStaleState:            http.StatusConflict,
		ErrCodeRevisionWindowExpired: http.StatusGone,
		ErrCodeRateLimited:           http.StatusTooManyRequests,
		ErrCodeDatabaseError:         http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeDatabaseError, "не удалось сохранить заявку")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, ErrCodeDatabaseError, CodeOf(fmt.Errorf("save: %w", err)))
}

func TestCodeOf_UnknownIsInternal(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(ErrProposalNotFound))
	assert.True(t, IsForbidden(ErrForbidden))
	assert.True(t, IsStaleState(fmt.Errorf("wrapped: %w", ErrStaleState)))
	assert.True(t, IsValidation(New(ErrCodeValidation, "пустые замечания")))
	assert.True(t, IsCode(ErrRevisionExpired, ErrCodeRevisionWindowExpired))
}
