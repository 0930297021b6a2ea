package handler

import (
	"encoding/json"

	"donation-gateway/internal/adapter/http/dto"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/apperror"
	"donation-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// DonationHandler handles client-submitted donations.
type DonationHandler struct {
	donationSvc ports.DonationService
}

// NewDonationHandler creates a new DonationHandler.
func NewDonationHandler(donationSvc ports.DonationService) *DonationHandler {
	return &DonationHandler{donationSvc: donationSvc}
}

// Submit handles POST /api/v1/donations.
func (h *DonationHandler) Submit(c *gin.Context) {
	var req dto.SubmitDonationRequest
	if err := bindTrimmed(c, &req); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return
	}

	donation, err := h.donationSvc.Submit(c.Request.Context(), ports.SubmitDonationRequest{
		RecipientID:   uuid.MustParse(req.RecipientID),
		NetworkTxID:   req.NetworkTxID,
		ClaimedAmount: *req.ClaimedAmount,
		Message:       req.Message,
		DonorAddress:  req.DonorAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewDonationResponse(donation))
}

// bindTrimmed decodes a JSON body, trims its string fields, normalizes it
// when the request knows how and then runs the binding validator, so that
// stray whitespace around an address does not fail validation.
func bindTrimmed(c *gin.Context, req any) error {
	if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil {
		return err
	}
	dto.TrimStruct(req)
	if n, ok := req.(interface{ Normalize() }); ok {
		n.Normalize()
	}
	return binding.Validator.ValidateStruct(req)
}
