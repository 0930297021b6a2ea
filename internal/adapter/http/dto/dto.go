package dto

import (
	"strings"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"

	"github.com/shopspring/decimal"
)

// SubmitDonationRequest is the request body for a client-submitted donation.
// Message is stored as written, so it is exempt from trimming.
type SubmitDonationRequest struct {
	RecipientID   string           `json:"recipient_id" binding:"required,uuid"`
	NetworkTxID   string           `json:"network_tx_id" binding:"required,solana_signature"`
	ClaimedAmount *decimal.Decimal `json:"claimed_amount" binding:"required"`
	Message       *string          `json:"message,omitempty" trim:"-"`
	DonorAddress  string           `json:"donor_address" binding:"required,solana_address"`
}

// Normalize canonicalizes fields before validation. UUIDs are accepted in
// either case but the uuid tag only matches lowercase.
func (r *SubmitDonationRequest) Normalize() {
	r.RecipientID = strings.ToLower(r.RecipientID)
}

// DonationResponse is a ledger entry as returned by the API. Amounts are
// decimal strings in SOL.
type DonationResponse struct {
	ID           string  `json:"id"`
	RecipientID  string  `json:"recipient_id"`
	DonorAddress *string `json:"donor_address"`
	NetworkTxID  string  `json:"network_tx_id"`
	Amount       string  `json:"amount"`
	Message      *string `json:"message"`
	Source       string  `json:"source"`
	BlockTime    *string `json:"block_time,omitempty"`
	ProcessedAt  string  `json:"processed_at"`
}

// NewDonationResponse converts a domain.Donation to its DTO.
func NewDonationResponse(d *domain.Donation) DonationResponse {
	resp := DonationResponse{
		ID:           d.ID.String(),
		RecipientID:  d.RecipientID.String(),
		DonorAddress: d.DonorAddress,
		NetworkTxID:  d.NetworkTxID,
		Amount:       d.Amount.String(),
		Message:      d.Message,
		Source:       string(d.Source),
		ProcessedAt:  d.ProcessedAt.UTC().Format(time.RFC3339Nano),
	}
	if d.BlockTime != nil {
		s := d.BlockTime.UTC().Format(time.RFC3339)
		resp.BlockTime = &s
	}
	return resp
}

// DonationListResponse wraps a page of donations, newest first.
type DonationListResponse struct {
	Items []DonationResponse `json:"items"`
	Count int                `json:"count"`
}

// NewDonationListResponse converts a slice of donations.
func NewDonationListResponse(donations []domain.Donation) DonationListResponse {
	items := make([]DonationResponse, 0, len(donations))
	for i := range donations {
		items = append(items, NewDonationResponse(&donations[i]))
	}
	return DonationListResponse{Items: items, Count: len(items)}
}

// StatsResponse is a recipient's running donation count and total in SOL.
type StatsResponse struct {
	Count int64  `json:"count"`
	Total string `json:"total"`
}

// NewStatsResponse converts ports.DonationStats.
func NewStatsResponse(s *ports.DonationStats) StatsResponse {
	return StatsResponse{Count: s.Count, Total: s.Total.String()}
}

// WebhookAck is the fixed acknowledgement returned to the event feed.
type WebhookAck struct {
	Success bool `json:"success"`
}

// TokenResponse is an issued read-API token.
type TokenResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}
