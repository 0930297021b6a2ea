package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"donation-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChainReader reads confirmed transactions from the payment network.
type ChainReader interface {
	// GetTransaction returns nil, nil when the network has no confirmed
	// transaction with this signature.
	GetTransaction(ctx context.Context, signature string) (*domain.ChainTransaction, error)
}

// ChainCache keeps confirmed transactions, which never change once final.
type ChainCache interface {
	Get(ctx context.Context, signature string) (*domain.ChainTransaction, error) // nil on miss
	Set(ctx context.Context, tx *domain.ChainTransaction, ttl time.Duration) error
}

// Broadcaster pushes newly inserted ledger entries to live subscribers.
type Broadcaster interface {
	Publish(ctx context.Context, d *domain.Donation) error
}

// Subscriber opens push subscriptions scoped to one recipient.
type Subscriber interface {
	// Subscribe returns once the subscription handshake has completed.
	Subscribe(ctx context.Context, recipientID uuid.UUID) (Subscription, error)
}

// Subscription delivers donations for one recipient. Donations is closed
// when the subscription fails or is closed.
type Subscription interface {
	Donations() <-chan domain.Donation
	Close() error
}

// --- Service Ports (Business Logic) ---

// TransactionValidator decides whether a transaction genuinely credited a recipient.
type TransactionValidator interface {
	// Validate returns *domain.ValidationError when the chain rejects the
	// claim; any other error is a failure to reach a verdict.
	Validate(ctx context.Context, signature, recipientAddress string, expectedAmount decimal.Decimal) (*domain.ValidationResult, error)
}

// DonationService is the client-submitted ingestion gateway.
type DonationService interface {
	Submit(ctx context.Context, req SubmitDonationRequest) (*domain.Donation, error)
}

// SubmitDonationRequest holds validated input for a client-submitted claim.
type SubmitDonationRequest struct {
	RecipientID   uuid.UUID
	NetworkTxID   string
	ClaimedAmount decimal.Decimal
	Message       *string
	DonorAddress  string
}

// FeedService is the event-feed ingestion gateway.
type FeedService interface {
	ProcessBatch(ctx context.Context, events []domain.TransferEvent) FeedBatchResult
}

// FeedBatchResult counts per-event outcomes. It is logged, never returned to the feed.
type FeedBatchResult struct {
	Received   int
	Inserted   int
	Duplicates int
	Skipped    int
	Rejected   int
	Failed     int
}

// FeedAuthenticator checks the feed's bearer secret.
type FeedAuthenticator interface {
	Authenticate(token string) bool
}

// StatsService serves the ledger read contract.
type StatsService interface {
	ListDonations(ctx context.Context, q DonationQuery) ([]domain.Donation, error)
	GetStats(ctx context.Context, recipientID uuid.UUID) (*DonationStats, error)
}

// HashService handles secret hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT token operations for the read API.
type TokenService interface {
	Generate(recipientID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	RecipientID uuid.UUID
}
