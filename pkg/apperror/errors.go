package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"donation-gateway/internal/core/domain"
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

// ---- Input (VAL) ----

// BadRequest is for malformed or missing input. Not retried.
func BadRequest(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ErrPayloadTooLarge is for bodies over the router's size cap.
func ErrPayloadTooLarge() *AppError {
	return New("VAL_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Donation ingestion (DON) ----

func ErrRecipientNotFound() *AppError {
	return New("DON_001", "Recipient not found", http.StatusNotFound)
}

// ErrInvalidTransaction reports a chain-validation rejection. The caller must
// submit a different transaction; resubmitting this one cannot succeed.
func ErrInvalidTransaction(verr *domain.ValidationError) *AppError {
	return Wrap("DON_002", "Invalid transaction: "+verr.Error(), http.StatusBadRequest, verr)
}

// ErrDuplicateDonation is returned when the transaction is already in the
// ledger. It is an idempotent no-op, surfaced so a client does not assume
// it paid twice.
func ErrDuplicateDonation() *AppError {
	return New("DON_003", "Donation already recorded", http.StatusConflict)
}

// ---- Security (SEC) ----

func ErrUnauthorized() *AppError {
	return New("SEC_001", "Unauthorized", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("SEC_003", "Access to this recipient is not allowed", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps store or unexpected failures. Safe to retry with backoff.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrChainUnavailable wraps payment network read failures. Safe to retry.
func ErrChainUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Payment network unavailable", http.StatusBadGateway, err)
}

// ValidationReason extracts the chain rejection reason from err, if any.
func ValidationReason(err error) (domain.RejectReason, bool) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return "", false
}
