package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("approve: %w", InvalidTransition("cancellation request", "approve", "APPROVED"))

	assert.True(t, errors.Is(err, ErrInvalidStateTransition))
	assert.False(t, errors.Is(err, ErrConcurrencyConflict))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "APPROVED", appErr.Details["current_status"])
}

func TestGatewayCodeMatching(t *testing.T) {
	err := Gateway("INSUFFICIENT_FUNDS", "merchant balance too low", nil)

	assert.True(t, errors.Is(err, ErrGateway))
	assert.True(t, errors.Is(err, &Error{Kind: KindGateway, Code: "INSUFFICIENT_FUNDS"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindGateway, Code: "TIMEOUT"}))
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := Validation("bad amount")
	withField := base.WithDetail("field", "amount")

	assert.Nil(t, base.Details)
	assert.Equal(t, "amount", withField.Details["field"])
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Validation("x"):                      http.StatusBadRequest,
		Authorization("x"):                   http.StatusForbidden,
		NotFound("dispute", "1"):             http.StatusNotFound,
		InvalidTransition("refund", "a", "b"): http.StatusConflict,
		AlreadyResolved("x"):                 http.StatusConflict,
		ConcurrencyConflict("x"):             http.StatusConflict,
		PolicyResolution("x"):                http.StatusUnprocessableEntity,
		Gateway("E", "x", nil):               http.StatusBadGateway,
		errors.New("boom"):                   http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}
