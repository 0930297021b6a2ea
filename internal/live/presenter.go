package live

import (
	"time"

	"donation-gateway/internal/core/domain"

	"github.com/rs/zerolog"
)

// PresenterState is the presentation queue's state.
type PresenterState int

const (
	Idle PresenterState = iota
	Presenting
)

func (s PresenterState) String() string {
	if s == Presenting {
		return "presenting"
	}
	return "idle"
}

// Presenter shows queued donations one at a time. It is driven by a single
// goroutine: the owner selects on DwellC and SettleC and calls OnDwell and
// OnSettle when they fire. The dwell timer is the only way out of
// Presenting.
type Presenter struct {
	surface  Surface
	settings Settings
	settle   time.Duration
	log      zerolog.Logger

	state   PresenterState
	queue   []domain.Donation
	current *domain.Donation

	dwell       *time.Timer
	settleTimer *time.Timer
	pending     string // utterance waiting out the settle delay
	speaking    bool
}

// NewPresenter creates an idle presenter. settle is the pause between
// cancelling one utterance and starting the next.
func NewPresenter(surface Surface, settings Settings, settle time.Duration, log zerolog.Logger) *Presenter {
	return &Presenter{
		surface:  surface,
		settings: settings,
		settle:   settle,
		log:      log,
	}
}

func (p *Presenter) State() PresenterState { return p.state }

// Current is the donation on screen, or nil when idle.
func (p *Presenter) Current() *domain.Donation { return p.current }

// Queued is the number of donations waiting behind the current one.
func (p *Presenter) Queued() int { return len(p.queue) }

// Enqueue appends d and starts presenting it if nothing is on screen.
func (p *Presenter) Enqueue(d domain.Donation) {
	p.queue = append(p.queue, d)
	p.advance()
}

// DwellC fires when the current donation's dwell has elapsed. It is nil
// while idle.
func (p *Presenter) DwellC() <-chan time.Time {
	if p.dwell == nil {
		return nil
	}
	return p.dwell.C
}

// SettleC fires when a pending utterance may be spoken.
func (p *Presenter) SettleC() <-chan time.Time {
	if p.settleTimer == nil {
		return nil
	}
	return p.settleTimer.C
}

// OnDwell clears the current donation and moves on to the next one.
func (p *Presenter) OnDwell() {
	p.dwell = nil
	if p.state != Presenting {
		return
	}
	if err := p.surface.Clear(); err != nil {
		p.log.Warn().Err(err).Msg("Failed to clear donation")
	}
	p.current = nil
	p.state = Idle
	p.advance()
}

// OnSettle speaks the pending utterance. Narration failures never hold up
// the queue.
func (p *Presenter) OnSettle() {
	p.settleTimer = nil
	text := p.pending
	p.pending = ""
	if text == "" {
		return
	}
	if err := p.surface.Speak(text); err != nil {
		p.log.Warn().Err(err).Msg("Narration failed")
		return
	}
	p.speaking = true
}

// Stop releases the timers and cancels any narration in flight.
func (p *Presenter) Stop() {
	if p.dwell != nil {
		p.dwell.Stop()
		p.dwell = nil
	}
	p.stopSettle()
	if p.speaking {
		_ = p.surface.CancelSpeech()
		p.speaking = false
	}
}

func (p *Presenter) advance() {
	if p.state != Idle || len(p.queue) == 0 {
		return
	}

	d := p.queue[0]
	p.queue[0] = domain.Donation{}
	p.queue = p.queue[1:]

	p.current = &d
	p.state = Presenting

	if err := p.surface.Show(NewCard(d, p.settings)); err != nil {
		p.log.Warn().Err(err).Str("donation_id", d.ID.String()).Msg("Failed to show donation")
	}
	p.narrate(d)
	p.dwell = time.NewTimer(p.settings.Dwell)
}

// narrate cancels whatever is being spoken and schedules d's utterance after
// the settle delay.
func (p *Presenter) narrate(d domain.Donation) {
	if !p.settings.Narrate || !d.HasMessage() {
		return
	}
	if err := p.surface.CancelSpeech(); err != nil {
		p.log.Warn().Err(err).Msg("Failed to cancel narration")
	}
	p.speaking = false

	p.stopSettle()
	p.pending = Utterance(d)
	p.settleTimer = time.NewTimer(p.settle)
}

func (p *Presenter) stopSettle() {
	if p.settleTimer != nil {
		p.settleTimer.Stop()
		p.settleTimer = nil
	}
	p.pending = ""
}
