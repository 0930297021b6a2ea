package dto

import (
	"strings"
	"testing"
	"time"

	"donation-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validAddress   = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	validSignature = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
)

func validRequest() SubmitDonationRequest {
	amount := decimal.RequireFromString("0.5")
	return SubmitDonationRequest{
		RecipientID:   uuid.NewString(),
		NetworkTxID:   validSignature,
		ClaimedAmount: &amount,
		DonorAddress:  validAddress,
	}
}

func TestIsSolanaAddress(t *testing.T) {
	assert.True(t, IsSolanaAddress(validAddress))
	assert.True(t, IsSolanaAddress("11111111111111111111111111111111"))
	assert.False(t, IsSolanaAddress(""))
	assert.False(t, IsSolanaAddress("0OIl"), "not base58")
	assert.False(t, IsSolanaAddress(validSignature), "wrong length")
}

func TestIsSolanaSignature(t *testing.T) {
	assert.True(t, IsSolanaSignature(validSignature))
	assert.False(t, IsSolanaSignature(validAddress))
	assert.False(t, IsSolanaSignature("not-a-signature"))
}

func TestSubmitDonationRequest_Binding(t *testing.T) {
	require.NoError(t, binding.Validator.ValidateStruct(validRequest()))

	tests := []struct {
		name   string
		mutate func(*SubmitDonationRequest)
	}{
		{"bad recipient id", func(r *SubmitDonationRequest) { r.RecipientID = "creator" }},
		{"bad signature", func(r *SubmitDonationRequest) { r.NetworkTxID = "abc" }},
		{"missing amount", func(r *SubmitDonationRequest) { r.ClaimedAmount = nil }},
		{"bad donor", func(r *SubmitDonationRequest) { r.DonorAddress = "0x1234" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			assert.Error(t, binding.Validator.ValidateStruct(req))
		})
	}
}

func TestSubmitDonationRequest_NormalizeLowercasesRecipientID(t *testing.T) {
	id := uuid.New()
	req := validRequest()
	req.RecipientID = strings.ToUpper(id.String())

	req.Normalize()

	assert.Equal(t, id.String(), req.RecipientID)
	assert.NoError(t, binding.Validator.ValidateStruct(req))
}

func TestTrimStruct(t *testing.T) {
	msg := "  <b>hi</b>  "
	req := validRequest()
	req.NetworkTxID = "  " + validSignature + "\n"
	req.DonorAddress = " " + validAddress
	req.Message = &msg

	TrimStruct(&req)

	assert.Equal(t, validSignature, req.NetworkTxID)
	assert.Equal(t, validAddress, req.DonorAddress)
	assert.Equal(t, "  <b>hi</b>  ", *req.Message, "message is stored as written")
	assert.True(t, decimal.RequireFromString("0.5").Equal(*req.ClaimedAmount))
}

func TestTrimStruct_IgnoresNonStructs(t *testing.T) {
	s := "  x  "
	TrimStruct(&s)
	TrimStruct(validRequest())
	assert.Equal(t, "  x  ", s)
}

func TestNewDonationResponse(t *testing.T) {
	donor := validAddress
	msg := "gm"
	bt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := &domain.Donation{
		ID:           uuid.New(),
		RecipientID:  uuid.New(),
		DonorAddress: &donor,
		NetworkTxID:  validSignature,
		Amount:       decimal.RequireFromString("0.499995"),
		Message:      &msg,
		Source:       domain.DonationSourceFeed,
		BlockTime:    &bt,
		ProcessedAt:  bt.Add(2 * time.Second),
	}

	resp := NewDonationResponse(d)
	assert.Equal(t, d.ID.String(), resp.ID)
	assert.Equal(t, "0.499995", resp.Amount)
	assert.Equal(t, "FEED", resp.Source)
	require.NotNil(t, resp.BlockTime)
	assert.Equal(t, "2026-03-01T12:00:00Z", *resp.BlockTime)
	assert.Equal(t, "2026-03-01T12:00:02Z", resp.ProcessedAt)

	list := NewDonationListResponse([]domain.Donation{*d, *d})
	assert.Equal(t, 2, list.Count)
	assert.Len(t, list.Items, 2)

	empty := NewDonationListResponse(nil)
	assert.NotNil(t, empty.Items)
}
