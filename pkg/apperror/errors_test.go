package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New("WAL_001", "wallet not found", http.StatusNotFound)
	assert.Equal(t, "[WAL_001] wallet not found", err.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, inner)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, inner))
}

func TestAppError_InternalDoesNotLeakMessage(t *testing.T) {
	inner := fmt.Errorf("pq: relation wallets does not exist")
	err := InternalError(inner)
	assert.Equal(t, "Internal server error", err.Message)
	assert.Equal(t, CodeInternal, err.Code)
}

func TestConstructors_CodesAndStatuses(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrNotFound("wallet"), CodeNotFound, http.StatusNotFound},
		{ErrInsufficientFunds(), CodeInsufficientFunds, http.StatusPaymentRequired},
		{ErrInvalidOperation("self transfer"), CodeInvalidOperation, http.StatusBadRequest},
		{ErrConflict("duplicate reference"), CodeConflict, http.StatusConflict},
		{ErrUnauthenticated(), CodeUnauthenticated, http.StatusUnauthorized},
		{ErrForbidden("api key revoked"), CodeForbidden, http.StatusForbidden},
		{ErrInvalidSignature(), CodeInvalidSignature, http.StatusUnauthorized},
		{ErrLimitExceeded("too many active keys"), CodeLimitExceeded, http.StatusUnprocessableEntity},
		{ErrInvalidState("key is still active"), CodeInvalidState, http.StatusConflict},
		{ErrGatewayUnavailable(fmt.Errorf("timeout")), CodeGatewayUnavailable, http.StatusBadGateway},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
	}
}

func TestErrNotFound_MessageNamesEntity(t *testing.T) {
	assert.Equal(t, "recipient wallet not found", ErrNotFound("recipient wallet").Message)
}
