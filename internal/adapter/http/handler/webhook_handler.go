package handler

import (
	"donation-gateway/internal/adapter/http/dto"
	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/apperror"
	"donation-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives transfer-event batches from the event feed.
type WebhookHandler struct {
	feedSvc ports.FeedService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(feedSvc ports.FeedService) *WebhookHandler {
	return &WebhookHandler{feedSvc: feedSvc}
}

// Receive handles POST /api/v1/webhooks/helius. Once authenticated, the
// feed always gets the same acknowledgement; per-event outcomes are only
// logged.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var events []domain.TransferEvent
	if err := c.ShouldBindJSON(&events); err != nil {
		response.Error(c, apperror.BadRequest("body must be a JSON array of transfer events"))
		return
	}

	h.feedSvc.ProcessBatch(c.Request.Context(), events)
	response.OK(c, dto.WebhookAck{Success: true})
}
