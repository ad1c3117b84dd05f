package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := map[*Error]int{
		NotFound("x"):                 http.StatusNotFound,
		Validation("x", nil):          http.StatusBadRequest,
		Conflict("x"):                 http.StatusConflict,
		Forbidden("x"):                http.StatusForbidden,
		Unauthorized("x"):             http.StatusUnauthorized,
		Internal("x", errors.New("")): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, err.Status(), err.Message)
	}
}

func TestAsClassifiesWrappedAndForeignErrors(t *testing.T) {
	wrapped := fmt.Errorf("checkin: %w", Conflict("attendance already recorded"))
	got := As(wrapped)
	assert.Equal(t, KindConflict, got.Kind)
	assert.True(t, Is(wrapped, KindConflict))

	foreign := As(errors.New("boom"))
	assert.Equal(t, KindInternal, foreign.Kind)
	assert.Equal(t, "internal error", foreign.Error())

	assert.Nil(t, As(nil))
}
