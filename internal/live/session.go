package live

import (
	"context"
	"time"

	"donation-gateway/config"
	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/logger"
	"donation-gateway/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one viewer's delivery channel and presentation queue. All of
// its state is touched only by the goroutine running Run.
type Session struct {
	delivery  *Delivery
	presenter *Presenter
	surface   Surface
	keepalive time.Duration
	log       zerolog.Logger
}

// Keepaliver is implemented by surfaces that need traffic on idle
// connections.
type Keepaliver interface {
	Keepalive() error
}

// NewSession wires a session for recipientID onto surface.
func NewSession(
	cfg config.LiveConfig,
	recipientID uuid.UUID,
	subscriber ports.Subscriber,
	ledger Ledger,
	surface Surface,
	settings Settings,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Session {
	log = logger.Component(log, "live").With().Str("recipient_id", recipientID.String()).Logger()
	return &Session{
		delivery:  NewDelivery(recipientID, subscriber, ledger, cfg.PollInterval, m, log),
		presenter: NewPresenter(surface, settings, cfg.SettleDelay, log),
		surface:   surface,
		keepalive: cfg.Keepalive,
		log:       log,
	}
}

// Run drives the session until ctx is done. Teardown closes the
// subscription, stops every timer and cancels narration.
func (s *Session) Run(ctx context.Context) {
	defer s.teardown()

	mode := s.delivery.Connect(ctx)
	s.log.Info().Str("mode", string(mode)).Msg("Viewer session started")
	s.status(mode)

	var keepalive <-chan time.Time
	ka, canKeepalive := s.surface.(Keepaliver)
	if canKeepalive && s.keepalive > 0 {
		t := time.NewTicker(s.keepalive)
		defer t.Stop()
		keepalive = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case don, ok := <-s.delivery.Pushed():
			s.enqueue(s.delivery.OnPush(don, ok))
			if !ok {
				s.status(s.delivery.Mode())
			}

		case <-s.delivery.Ticks():
			s.enqueue(s.delivery.Poll(ctx))

		case <-s.presenter.DwellC():
			s.presenter.OnDwell()

		case <-s.presenter.SettleC():
			s.presenter.OnSettle()

		case <-keepalive:
			if err := ka.Keepalive(); err != nil {
				s.log.Debug().Err(err).Msg("Keepalive failed")
			}
		}
	}
}

func (s *Session) enqueue(donations []domain.Donation) {
	for _, d := range donations {
		s.presenter.Enqueue(d)
	}
}

func (s *Session) status(mode Mode) {
	if err := s.surface.Status(mode); err != nil {
		s.log.Debug().Err(err).Msg("Failed to send status")
	}
}

func (s *Session) teardown() {
	s.presenter.Stop()
	s.delivery.Close()
	s.log.Info().Msg("Viewer session ended")
}
