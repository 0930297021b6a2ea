package service

import (
	"context"
	"fmt"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ChainValidator implements ports.TransactionValidator. It holds no state
// and never writes, so repeated calls for one signature agree.
type ChainValidator struct {
	reader  ports.ChainReader
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewChainValidator creates a validator over a chain reader.
func NewChainValidator(reader ports.ChainReader, m *metrics.Metrics, log zerolog.Logger) *ChainValidator {
	return &ChainValidator{reader: reader, metrics: m, log: log}
}

// Validate re-derives the amount a transaction credited to recipientAddress
// and checks it against expectedAmount within domain.AmountTolerance.
// The accepted amount is always the chain-derived one.
func (v *ChainValidator) Validate(
	ctx context.Context,
	signature, recipientAddress string,
	expectedAmount decimal.Decimal,
) (*domain.ValidationResult, error) {
	start := time.Now()
	defer func() { v.metrics.ObserveValidation(time.Since(start)) }()

	tx, err := v.reader.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("read transaction %s: %w", signature, err)
	}
	if tx == nil {
		return nil, domain.Reject(domain.RejectNotFound, "no confirmed transaction %s", signature)
	}
	if tx.Failed {
		return nil, domain.Reject(domain.RejectExecutionFailed, "%s", tx.FailureReason)
	}

	idx := tx.AccountIndex(recipientAddress)
	if idx < 0 {
		return nil, domain.Reject(domain.RejectRecipientNotInvolved, "%s is not an account of the transaction", recipientAddress)
	}

	delta := tx.BalanceDelta(idx)
	if delta <= 0 {
		return nil, domain.Reject(domain.RejectNoCredit, "recipient balance changed by %d lamports", delta)
	}

	actual := domain.LamportsToSOL(delta)
	if actual.Sub(expectedAmount).Abs().GreaterThan(domain.AmountTolerance) {
		return nil, domain.Reject(domain.RejectAmountMismatch, "expected %s SOL, transferred %s SOL",
			expectedAmount.String(), actual.String())
	}

	v.log.Debug().
		Str("signature", signature).
		Str("amount", actual.String()).
		Uint64("slot", tx.Slot).
		Msg("Transaction validated")

	return &domain.ValidationResult{
		Signature: signature,
		Amount:    actual,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
	}, nil
}
