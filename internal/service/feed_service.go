package service

import (
	"context"
	"errors"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/metrics"

	"github.com/rs/zerolog"
)

// FeedServiceImpl implements ports.FeedService, the event-feed ingestion
// gateway. Events in a batch are handled one at a time and a failure on one
// never affects the others.
type FeedServiceImpl struct {
	recipients  ports.RecipientRepository
	donations   ports.DonationRepository
	validator   ports.TransactionValidator
	broadcaster ports.Broadcaster
	revalidate  bool
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewFeedService creates a new FeedServiceImpl. With revalidate set, feed
// events are checked on chain and the stored amount is the validator's.
func NewFeedService(
	recipients ports.RecipientRepository,
	donations ports.DonationRepository,
	validator ports.TransactionValidator,
	broadcaster ports.Broadcaster,
	revalidate bool,
	m *metrics.Metrics,
	log zerolog.Logger,
) *FeedServiceImpl {
	return &FeedServiceImpl{
		recipients:  recipients,
		donations:   donations,
		validator:   validator,
		broadcaster: broadcaster,
		revalidate:  revalidate,
		metrics:     m,
		log:         log,
	}
}

// ProcessBatch ingests every event in order and reports per-outcome counts.
func (s *FeedServiceImpl) ProcessBatch(ctx context.Context, events []domain.TransferEvent) ports.FeedBatchResult {
	res := ports.FeedBatchResult{Received: len(events)}

	for i := range events {
		outcome := s.processEvent(ctx, &events[i])
		s.metrics.IngestionOutcome(string(domain.DonationSourceFeed), outcome)

		switch outcome {
		case metrics.OutcomeInserted:
			res.Inserted++
		case metrics.OutcomeDuplicate:
			res.Duplicates++
		case metrics.OutcomeSkipped:
			res.Skipped++
		case metrics.OutcomeRejected:
			res.Rejected++
		default:
			res.Failed++
		}
	}

	s.log.Info().
		Int("received", res.Received).
		Int("inserted", res.Inserted).
		Int("duplicates", res.Duplicates).
		Int("skipped", res.Skipped).
		Int("rejected", res.Rejected).
		Int("failed", res.Failed).
		Msg("Feed batch processed")

	return res
}

func (s *FeedServiceImpl) processEvent(ctx context.Context, e *domain.TransferEvent) string {
	log := s.log.With().Str("signature", e.Signature).Logger()

	if !e.IsTransfer() || e.Signature == "" {
		return metrics.OutcomeSkipped
	}

	rejected := false
	for _, account := range e.CandidateAccounts() {
		recipient, err := s.recipients.GetByPayoutAddress(ctx, account)
		if err != nil {
			log.Error().Err(err).Msg("Feed event recipient lookup failed")
			return metrics.OutcomeFailed
		}
		if recipient == nil {
			continue
		}

		outcome := s.credit(ctx, e, recipient, log)
		switch outcome {
		case metrics.OutcomeRejected:
			rejected = true
		case metrics.OutcomeSkipped:
		default:
			return outcome
		}
	}

	if rejected {
		return metrics.OutcomeRejected
	}
	log.Debug().Msg("Feed event credits no known recipient")
	return metrics.OutcomeSkipped
}

// credit records the event for one registered recipient. Rejected and
// skipped outcomes let the caller move on to the next candidate.
func (s *FeedServiceImpl) credit(ctx context.Context, e *domain.TransferEvent, recipient *domain.Recipient, log zerolog.Logger) string {
	log = log.With().Str("payout_address", recipient.PayoutAddress).Logger()

	amount := domain.LamportsToSOL(e.CreditedLamports(recipient.PayoutAddress))
	var blockTime *time.Time
	if e.Timestamp > 0 {
		bt := time.Unix(e.Timestamp, 0).UTC()
		blockTime = &bt
	}

	if s.revalidate {
		result, err := s.validator.Validate(ctx, e.Signature, recipient.PayoutAddress, amount)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				log.Warn().Str("reason", string(verr.Reason)).Msg("Feed event rejected by chain validation")
				return metrics.OutcomeRejected
			}
			log.Error().Err(err).Msg("Feed event validation failed")
			return metrics.OutcomeFailed
		}
		amount = result.Amount
		if result.BlockTime != nil {
			blockTime = result.BlockTime
		}
	} else if !amount.IsPositive() {
		log.Debug().Msg("Feed event credits nothing to recipient")
		return metrics.OutcomeSkipped
	}

	d := &domain.Donation{
		RecipientID: recipient.ID,
		NetworkTxID: e.Signature,
		Amount:      amount,
		Source:      domain.DonationSourceFeed,
		BlockTime:   blockTime,
	}
	if e.FeePayer != "" {
		donor := e.FeePayer
		d.DonorAddress = &donor
	}

	inserted, err := s.donations.InsertIfAbsent(ctx, d)
	if err != nil {
		log.Error().Err(err).Msg("Feed event insert failed")
		return metrics.OutcomeFailed
	}
	if !inserted {
		log.Debug().Msg("Feed event already recorded")
		return metrics.OutcomeDuplicate
	}

	log.Info().
		Str("donation_id", d.ID.String()).
		Str("recipient_id", d.RecipientID.String()).
		Str("amount", d.Amount.String()).
		Msg("Donation recorded from feed")

	announce(ctx, s.broadcaster, d, s.log)
	return metrics.OutcomeInserted
}
