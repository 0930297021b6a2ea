package handler

import (
	_ "embed"
	"io"
	"net/http"

	"donation-gateway/config"
	"donation-gateway/internal/adapter/http/middleware"
	"donation-gateway/internal/core/ports"
	"donation-gateway/internal/live"
	"donation-gateway/pkg/apperror"
	"donation-gateway/pkg/metrics"
	"donation-gateway/pkg/response"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:embed widget.html
var widgetPage []byte

// WidgetHandler serves the viewer overlay and its event stream.
type WidgetHandler struct {
	recipients ports.RecipientRepository
	subscriber ports.Subscriber
	ledger     live.Ledger
	cfg        config.LiveConfig
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewWidgetHandler creates a new WidgetHandler. A nil subscriber makes every
// session poll.
func NewWidgetHandler(
	recipients ports.RecipientRepository,
	subscriber ports.Subscriber,
	ledger live.Ledger,
	cfg config.LiveConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *WidgetHandler {
	return &WidgetHandler{
		recipients: recipients,
		subscriber: subscriber,
		ledger:     ledger,
		cfg:        cfg,
		metrics:    m,
		log:        log,
	}
}

// Page handles GET /widget/:recipient_id, the browser overlay.
func (h *WidgetHandler) Page(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", widgetPage)
}

// Stream handles GET /api/v1/widget/:recipient_id/stream. It runs one viewer
// session for as long as the client stays connected.
func (h *WidgetHandler) Stream(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Param(middleware.ParamRecipientID))
	if err != nil {
		response.Error(c, apperror.BadRequest("recipient_id must be a UUID"))
		return
	}

	recipient, err := h.recipients.GetByID(c.Request.Context(), recipientID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if recipient == nil {
		response.Error(c, apperror.ErrRecipientNotFound())
		return
	}

	settings := live.ParseSettings(c.Request.URL.Query(), h.cfg.DefaultDwell)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	surface := &sseSurface{w: c.Writer}
	if err := surface.emit("config", widgetConfig{
		Settings:    settings,
		DwellMillis: settings.DwellMillis(),
		DisplayName: recipient.DisplayName,
	}); err != nil {
		return
	}

	session := live.NewSession(h.cfg, recipientID, h.subscriber, h.ledger, surface, settings, h.metrics, h.log)
	session.Run(c.Request.Context())
}

type widgetConfig struct {
	live.Settings
	DwellMillis int64  `json:"duration"`
	DisplayName string `json:"display_name"`
}

// sseSurface renders session commands as Server-Sent Events.
type sseSurface struct {
	w gin.ResponseWriter
}

func (s *sseSurface) emit(event string, data any) error {
	if err := sse.Encode(s.w, sse.Event{Event: event, Data: data}); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s *sseSurface) Status(mode live.Mode) error {
	return s.emit("status", gin.H{"mode": mode})
}

func (s *sseSurface) Show(card live.Card) error { return s.emit("show", card) }
func (s *sseSurface) Clear() error              { return s.emit("clear", gin.H{}) }

func (s *sseSurface) Speak(text string) error {
	return s.emit("speak", gin.H{"text": text})
}

func (s *sseSurface) CancelSpeech() error { return s.emit("cancel", gin.H{}) }

// Keepalive writes an SSE comment line.
func (s *sseSurface) Keepalive() error {
	if _, err := io.WriteString(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}
