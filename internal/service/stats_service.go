package service

import (
	"context"
	"fmt"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// StatsServiceImpl implements ports.StatsService over the ledger.
type StatsServiceImpl struct {
	donations ports.DonationRepository
}

// NewStatsService creates a new StatsServiceImpl.
func NewStatsService(donations ports.DonationRepository) *StatsServiceImpl {
	return &StatsServiceImpl{donations: donations}
}

// ListDonations returns a recipient's donations, newest first.
func (s *StatsServiceImpl) ListDonations(ctx context.Context, q ports.DonationQuery) ([]domain.Donation, error) {
	q.Order = ports.OrderDescending
	donations, err := s.donations.Query(ctx, q.Normalize())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list donations: %w", err))
	}
	return donations, nil
}

// GetStats returns the running donation count and total for a recipient.
func (s *StatsServiceImpl) GetStats(ctx context.Context, recipientID uuid.UUID) (*ports.DonationStats, error) {
	stats, err := s.donations.Stats(ctx, recipientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("donation stats: %w", err))
	}
	return stats, nil
}
