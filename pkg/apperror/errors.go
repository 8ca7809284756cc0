package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes by concern. Handlers and tests match on these.
const (
	CodeNotFound           = "WAL_001"
	CodeInsufficientFunds  = "WAL_002"
	CodeInvalidOperation   = "WAL_003"
	CodeConflict           = "WAL_004"
	CodeUnauthenticated    = "SEC_001"
	CodeForbidden          = "SEC_002"
	CodeInvalidSignature   = "SEC_003"
	CodeLimitExceeded      = "KEY_001"
	CodeInvalidState       = "KEY_002"
	CodeGatewayUnavailable = "GW_001"
	CodeInternal           = "SYS_001"
	CodeRateLimited        = "SYS_002"
)

// ---- Ledger & Wallet (WAL) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidOperation(message string) *AppError {
	return New(CodeInvalidOperation, message, http.StatusBadRequest)
}

func ErrConflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// ---- Access & Security (SEC) ----

func ErrUnauthenticated() *AppError {
	return New(CodeUnauthenticated, "Missing or invalid credentials", http.StatusUnauthorized)
}

func ErrForbidden(reason string) *AppError {
	return New(CodeForbidden, reason, http.StatusForbidden)
}

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- API keys (KEY) ----

func ErrLimitExceeded(message string) *AppError {
	return New(CodeLimitExceeded, message, http.StatusUnprocessableEntity)
}

func ErrInvalidState(message string) *AppError {
	return New(CodeInvalidState, message, http.StatusConflict)
}

// ---- Gateway & System ----

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap(CodeGatewayUnavailable, "Payment gateway unavailable", http.StatusBadGateway, err)
}

func ErrRateLimited() *AppError {
	return New(CodeRateLimited, "Too many requests", http.StatusTooManyRequests)
}

// InternalError wraps an internal error without leaking its detail to callers.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
