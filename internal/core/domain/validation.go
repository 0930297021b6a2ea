package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AmountTolerance absorbs fee rounding in the client's estimate of the amount.
var AmountTolerance = decimal.RequireFromString("0.001")

// RejectReason classifies why a transaction failed validation.
type RejectReason string

const (
	RejectNotFound             RejectReason = "NOT_FOUND"
	RejectExecutionFailed      RejectReason = "EXECUTION_FAILED"
	RejectRecipientNotInvolved RejectReason = "RECIPIENT_NOT_INVOLVED"
	RejectNoCredit             RejectReason = "NO_CREDIT"
	RejectAmountMismatch       RejectReason = "AMOUNT_MISMATCH"
)

// ValidationError is returned when the chain contradicts a payment claim.
// It is a definitive answer, not a transient failure: resubmitting the same
// transaction yields the same result.
type ValidationError struct {
	Reason RejectReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Reject builds a ValidationError.
func Reject(reason RejectReason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ValidationResult is the chain-derived truth about an accepted transaction.
type ValidationResult struct {
	Signature string
	Amount    decimal.Decimal
	Slot      uint64
	BlockTime *time.Time
}
