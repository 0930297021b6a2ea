package service

import (
	"context"
	"errors"
	"fmt"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/apperror"
	"donation-gateway/pkg/metrics"

	"github.com/rs/zerolog"
)

// DonationServiceImpl implements ports.DonationService, the client-submitted
// ingestion gateway: resolve, validate, insert once, announce.
type DonationServiceImpl struct {
	recipients  ports.RecipientRepository
	donations   ports.DonationRepository
	validator   ports.TransactionValidator
	broadcaster ports.Broadcaster
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewDonationService creates a new DonationServiceImpl.
func NewDonationService(
	recipients ports.RecipientRepository,
	donations ports.DonationRepository,
	validator ports.TransactionValidator,
	broadcaster ports.Broadcaster,
	m *metrics.Metrics,
	log zerolog.Logger,
) *DonationServiceImpl {
	return &DonationServiceImpl{
		recipients:  recipients,
		donations:   donations,
		validator:   validator,
		broadcaster: broadcaster,
		metrics:     m,
		log:         log,
	}
}

// Submit records a client-claimed donation after verifying it on chain.
// The stored amount is the validator's, never the claimed one.
func (s *DonationServiceImpl) Submit(ctx context.Context, req ports.SubmitDonationRequest) (*domain.Donation, error) {
	source := string(domain.DonationSourceClient)

	if req.NetworkTxID == "" || req.DonorAddress == "" {
		return nil, apperror.BadRequest("network_tx_id and donor_address are required")
	}
	if !req.ClaimedAmount.IsPositive() {
		return nil, apperror.BadRequest("claimed_amount must be greater than zero")
	}

	recipient, err := s.recipients.GetByID(ctx, req.RecipientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	result, err := s.validator.Validate(ctx, req.NetworkTxID, recipient.PayoutAddress, req.ClaimedAmount)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.metrics.IngestionOutcome(source, metrics.OutcomeRejected)
			s.log.Info().
				Str("network_tx_id", req.NetworkTxID).
				Str("reason", string(verr.Reason)).
				Msg("Donation rejected by chain validation")
			return nil, apperror.ErrInvalidTransaction(verr)
		}
		s.metrics.IngestionOutcome(source, metrics.OutcomeFailed)
		return nil, apperror.ErrChainUnavailable(err)
	}

	donor := req.DonorAddress
	d := &domain.Donation{
		RecipientID:  recipient.ID,
		DonorAddress: &donor,
		NetworkTxID:  req.NetworkTxID,
		Amount:       result.Amount,
		Message:      domain.TruncateMessage(req.Message),
		Source:       domain.DonationSourceClient,
		BlockTime:    result.BlockTime,
	}

	inserted, err := s.donations.InsertIfAbsent(ctx, d)
	if err != nil {
		s.metrics.IngestionOutcome(source, metrics.OutcomeFailed)
		return nil, apperror.InternalError(fmt.Errorf("insert donation: %w", err))
	}
	if !inserted {
		s.metrics.IngestionOutcome(source, metrics.OutcomeDuplicate)
		return nil, apperror.ErrDuplicateDonation()
	}

	s.metrics.IngestionOutcome(source, metrics.OutcomeInserted)
	s.log.Info().
		Str("donation_id", d.ID.String()).
		Str("recipient_id", d.RecipientID.String()).
		Str("network_tx_id", d.NetworkTxID).
		Str("amount", d.Amount.String()).
		Msg("Donation recorded")

	announce(ctx, s.broadcaster, d, s.log)
	return d, nil
}

// announce publishes an inserted donation. Push delivery is best effort:
// polling sessions pick the entry up from the ledger regardless. Publishes
// from concurrent inserts are not ordered by commit, so viewers may see two
// close donations in either order.
func announce(ctx context.Context, b ports.Broadcaster, d *domain.Donation, log zerolog.Logger) {
	if b == nil {
		return
	}
	if err := b.Publish(context.WithoutCancel(ctx), d); err != nil {
		log.Warn().Err(err).Str("donation_id", d.ID.String()).Msg("Failed to publish donation")
	}
}
