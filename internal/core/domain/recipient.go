package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recipient is a registered payee. PayoutAddress is fixed at account setup
// and is the account that must be credited for a donation to count.
type Recipient struct {
	ID            uuid.UUID `json:"id"`
	Handle        string    `json:"handle"`
	DisplayName   string    `json:"display_name"`
	PayoutAddress string    `json:"payout_address"`
	CreatedAt     time.Time `json:"created_at"`
}
