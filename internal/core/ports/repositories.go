package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"donation-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipientRepository defines persistence operations for recipients.
type RecipientRepository interface {
	Create(ctx context.Context, recipient *domain.Recipient) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error)
	GetByPayoutAddress(ctx context.Context, address string) (*domain.Recipient, error)
}

// DonationRepository is the ledger store. Entries are insert-only.
type DonationRepository interface {
	// InsertIfAbsent atomically inserts d unless an entry with the same
	// NetworkTxID exists. It returns false for a duplicate, in which case d
	// is left untouched. On insert, d.ID and d.ProcessedAt are filled in.
	InsertIfAbsent(ctx context.Context, d *domain.Donation) (bool, error)
	Query(ctx context.Context, q DonationQuery) ([]domain.Donation, error)
	Stats(ctx context.Context, recipientID uuid.UUID) (*DonationStats, error)
}

// SortOrder is the processed_at ordering of a ledger query.
type SortOrder string

const (
	OrderDescending SortOrder = "DESC"
	OrderAscending  SortOrder = "ASC"
)

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 200
)

// DonationQuery filters the ledger by recipient and lower time bound.
type DonationQuery struct {
	RecipientID uuid.UUID
	Since       *time.Time // processed_at >= Since
	Limit       int
	Order       SortOrder // default descending
}

// Normalize applies default limit and order.
func (q DonationQuery) Normalize() DonationQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	if q.Order != OrderAscending {
		q.Order = OrderDescending
	}
	return q
}

// DonationStats is the running count and sum for a recipient.
type DonationStats struct {
	Count int64
	Total decimal.Decimal
}
