package handler

import (
	"strconv"
	"time"

	"donation-gateway/internal/adapter/http/dto"
	"donation-gateway/internal/adapter/http/middleware"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/apperror"
	"donation-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecipientHandler serves a recipient's own ledger and running totals.
type RecipientHandler struct {
	statsSvc ports.StatsService
}

// NewRecipientHandler creates a new RecipientHandler.
func NewRecipientHandler(statsSvc ports.StatsService) *RecipientHandler {
	return &RecipientHandler{statsSvc: statsSvc}
}

// ListDonations handles GET /api/v1/recipients/:recipient_id/donations.
func (h *RecipientHandler) ListDonations(c *gin.Context) {
	recipientID, ok := c.Get(middleware.CtxRecipientID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	q := ports.DonationQuery{RecipientID: recipientID.(uuid.UUID)}
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			q.Limit = v
		}
	}
	if s := c.Query("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.Error(c, apperror.BadRequest("since must be an RFC 3339 timestamp"))
			return
		}
		q.Since = &since
	}

	donations, err := h.statsSvc.ListDonations(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewDonationListResponse(donations))
}

// GetStats handles GET /api/v1/recipients/:recipient_id/stats.
func (h *RecipientHandler) GetStats(c *gin.Context) {
	recipientID, ok := c.Get(middleware.CtxRecipientID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	stats, err := h.statsSvc.GetStats(c.Request.Context(), recipientID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewStatsResponse(stats))
}
