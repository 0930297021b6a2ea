package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxMessageLength is the cap on donor message length, in characters.
const MaxMessageLength = 200

// DonationSource records which ingestion path produced a ledger entry.
type DonationSource string

const (
	DonationSourceClient DonationSource = "CLIENT"
	DonationSourceFeed   DonationSource = "FEED"
)

// Donation is an immutable ledger entry for one verified on-chain payment.
// NetworkTxID is globally unique and acts as the idempotency key.
type Donation struct {
	ID           uuid.UUID       `json:"id"`
	RecipientID  uuid.UUID       `json:"recipient_id"`
	DonorAddress *string         `json:"donor_address"`
	NetworkTxID  string          `json:"network_tx_id"`
	Amount       decimal.Decimal `json:"amount"` // SOL, never lamports
	Message      *string         `json:"message"`
	Source       DonationSource  `json:"source"`
	BlockTime    *time.Time      `json:"block_time,omitempty"`
	ProcessedAt  time.Time       `json:"processed_at"`
}

// HasMessage reports whether the donation carries non-empty message text.
func (d *Donation) HasMessage() bool {
	return d.Message != nil && *d.Message != ""
}

// TruncateMessage caps a message at MaxMessageLength characters.
// Empty input yields nil so that "no message" has a single representation.
func TruncateMessage(msg *string) *string {
	if msg == nil || *msg == "" {
		return nil
	}
	s := *msg
	if utf8.RuneCountInString(s) <= MaxMessageLength {
		return &s
	}
	runes := []rune(s)
	s = string(runes[:MaxMessageLength])
	return &s
}
