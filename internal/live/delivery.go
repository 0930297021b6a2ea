package live

import (
	"context"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode is the delivery channel's state.
type Mode string

const (
	ModeConnecting Mode = "connecting"
	ModeLive       Mode = "live"
	ModeDegraded   Mode = "polling"
)

// Ledger is the read side of the donation store used for polling.
type Ledger interface {
	Query(ctx context.Context, q ports.DonationQuery) ([]domain.Donation, error)
}

// Delivery feeds one recipient's new donations to a viewer session, by push
// when the subscription handshake succeeds and by polling otherwise. Once
// degraded it never goes back to push. Like Presenter it is owned by a
// single goroutine.
type Delivery struct {
	recipientID uuid.UUID
	subscriber  ports.Subscriber
	ledger      Ledger
	interval    time.Duration
	metrics     *metrics.Metrics
	log         zerolog.Logger
	now         func() time.Time

	mode      Mode
	sub       ports.Subscription
	ticker    *time.Ticker
	watermark time.Time
	delivered map[uuid.UUID]time.Time // ID -> processed_at
	closed    bool
}

// NewDelivery creates a channel in ModeConnecting. The poll watermark starts
// at the creation time.
func NewDelivery(
	recipientID uuid.UUID,
	subscriber ports.Subscriber,
	ledger Ledger,
	interval time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Delivery {
	return newDelivery(recipientID, subscriber, ledger, interval, m, log, time.Now)
}

func newDelivery(
	recipientID uuid.UUID,
	subscriber ports.Subscriber,
	ledger Ledger,
	interval time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
	now func() time.Time,
) *Delivery {
	return &Delivery{
		recipientID: recipientID,
		subscriber:  subscriber,
		ledger:      ledger,
		interval:    interval,
		metrics:     m,
		log:         log,
		now:         now,
		mode:        ModeConnecting,
		watermark:   now(),
		delivered:   make(map[uuid.UUID]time.Time),
	}
}

func (d *Delivery) Mode() Mode { return d.mode }

// Watermark is the lower processed_at bound of the next poll.
func (d *Delivery) Watermark() time.Time { return d.watermark }

// Connect performs the push handshake and settles the channel in ModeLive or
// ModeDegraded.
func (d *Delivery) Connect(ctx context.Context) Mode {
	if d.mode != ModeConnecting || d.closed {
		return d.mode
	}
	if d.subscriber == nil {
		d.degrade()
		return d.mode
	}

	sub, err := d.subscriber.Subscribe(ctx, d.recipientID)
	if err != nil {
		d.log.Info().Err(err).Msg("Push subscription unavailable, polling")
		d.degrade()
		return d.mode
	}

	d.sub = sub
	d.mode = ModeLive
	d.metrics.SessionMode("", metrics.ModeLive)
	return d.mode
}

// Pushed delivers donations while live. It is nil in any other mode.
func (d *Delivery) Pushed() <-chan domain.Donation {
	if d.mode != ModeLive || d.sub == nil {
		return nil
	}
	return d.sub.Donations()
}

// Ticks fires on each poll interval while degraded. It is nil otherwise.
func (d *Delivery) Ticks() <-chan time.Time {
	if d.ticker == nil {
		return nil
	}
	return d.ticker.C
}

// OnPush handles one receive from Pushed. A closed channel (ok false) means
// the subscription failed and the channel degrades to polling.
func (d *Delivery) OnPush(don domain.Donation, ok bool) []domain.Donation {
	if !ok {
		d.log.Warn().Msg("Push subscription lost, polling")
		d.degrade()
		return nil
	}
	if don.RecipientID != d.recipientID || !d.markDelivered(don) {
		return nil
	}
	return []domain.Donation{don}
}

// Poll queries everything processed at or after the watermark, oldest first,
// and returns the donations not delivered yet. On success the watermark moves
// to the poll's start time even if nothing was found. A failed poll leaves it
// where it was.
func (d *Delivery) Poll(ctx context.Context) []domain.Donation {
	start := d.now()
	since := d.watermark

	var fresh []domain.Donation
	for {
		rows, err := d.ledger.Query(ctx, ports.DonationQuery{
			RecipientID: d.recipientID,
			Since:       &since,
			Limit:       ports.MaxQueryLimit,
			Order:       ports.OrderAscending,
		})
		if err != nil {
			d.log.Warn().Err(err).Msg("Poll failed")
			return fresh
		}

		for _, row := range rows {
			if d.markDelivered(row) {
				fresh = append(fresh, row)
			}
		}

		if len(rows) < ports.MaxQueryLimit {
			break
		}
		// Full page: continue from the last row. The bound is inclusive, so
		// stop if it does not move or the page would repeat forever.
		last := rows[len(rows)-1].ProcessedAt
		if !last.After(since) {
			break
		}
		since = last
	}

	d.watermark = start
	d.prune()
	return fresh
}

// Close releases the subscription and the poll ticker.
func (d *Delivery) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.sub != nil {
		if err := d.sub.Close(); err != nil {
			d.log.Debug().Err(err).Msg("Closing push subscription")
		}
		d.sub = nil
	}
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
	switch d.mode {
	case ModeLive:
		d.metrics.SessionMode(metrics.ModeLive, "")
	case ModeDegraded:
		d.metrics.SessionMode(metrics.ModePolling, "")
	}
}

func (d *Delivery) degrade() {
	from := ""
	if d.mode == ModeLive {
		from = metrics.ModeLive
	}
	if d.sub != nil {
		_ = d.sub.Close()
		d.sub = nil
	}
	d.mode = ModeDegraded
	d.ticker = time.NewTicker(d.interval)
	d.metrics.SessionMode(from, metrics.ModePolling)
}

// markDelivered records don and reports whether it is new to this session.
func (d *Delivery) markDelivered(don domain.Donation) bool {
	if _, seen := d.delivered[don.ID]; seen {
		return false
	}
	d.delivered[don.ID] = don.ProcessedAt
	return true
}

// prune forgets donations processed before the watermark. No later poll can
// return them.
func (d *Delivery) prune() {
	for id, processedAt := range d.delivered {
		if processedAt.Before(d.watermark) {
			delete(d.delivered, id)
		}
	}
}
