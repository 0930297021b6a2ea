package live

import (
	"context"
	"sync"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type surfaceEvent struct {
	kind string
	arg  string
}

// fakeSurface records every command sent to the viewer page.
type fakeSurface struct {
	mu       sync.Mutex
	events   []surfaceEvent
	speakErr error
}

func (f *fakeSurface) record(kind, arg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, surfaceEvent{kind: kind, arg: arg})
}

func (f *fakeSurface) Status(mode Mode) error { f.record("status", string(mode)); return nil }
func (f *fakeSurface) Show(c Card) error      { f.record("show", c.ID); return nil }
func (f *fakeSurface) Clear() error           { f.record("clear", ""); return nil }
func (f *fakeSurface) CancelSpeech() error    { f.record("cancel", ""); return nil }

func (f *fakeSurface) Speak(text string) error {
	f.record("speak", text)
	return f.speakErr
}

func (f *fakeSurface) snapshot() []surfaceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]surfaceEvent(nil), f.events...)
}

func (f *fakeSurface) args(kind string) []string {
	var out []string
	for _, e := range f.snapshot() {
		if e.kind == kind {
			out = append(out, e.arg)
		}
	}
	return out
}

func (f *fakeSurface) kinds() []string {
	var out []string
	for _, e := range f.snapshot() {
		out = append(out, e.kind)
	}
	return out
}

// fakeLedger answers polls from a fixed row set filtered like the store.
type fakeLedger struct {
	mu      sync.Mutex
	rows    []domain.Donation
	err     error
	queries []ports.DonationQuery
}

func (l *fakeLedger) Query(_ context.Context, q ports.DonationQuery) ([]domain.Donation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q)
	if l.err != nil {
		return nil, l.err
	}
	var out []domain.Donation
	for _, r := range l.rows {
		if r.RecipientID != q.RecipientID {
			continue
		}
		if q.Since != nil && r.ProcessedAt.Before(*q.Since) {
			continue
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (l *fakeLedger) add(rows ...domain.Donation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, rows...)
}

func (l *fakeLedger) queryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queries)
}

// fakeSubscriber hands out in-memory subscriptions.
type fakeSubscriber struct {
	mu    sync.Mutex
	err   error
	calls int
	sub   *fakeSubscription
}

func (s *fakeSubscriber) Subscribe(_ context.Context, _ uuid.UUID) (ports.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.sub = &fakeSubscription{ch: make(chan domain.Donation, 8)}
	return s.sub, nil
}

func (s *fakeSubscriber) current() *fakeSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

type fakeSubscription struct {
	ch       chan domain.Donation
	once     sync.Once
	mu       sync.Mutex
	isClosed bool
}

func (s *fakeSubscription) Donations() <-chan domain.Donation { return s.ch }

// fail simulates a lost connection.
func (s *fakeSubscription) fail() { s.once.Do(func() { close(s.ch) }) }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	s.isClosed = true
	s.mu.Unlock()
	s.fail()
	return nil
}

func (s *fakeSubscription) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}

func donation(recipientID uuid.UUID, processedAt time.Time, msg string) domain.Donation {
	d := domain.Donation{
		ID:          uuid.New(),
		RecipientID: recipientID,
		NetworkTxID: uuid.NewString(),
		Amount:      decimal.RequireFromString("0.25"),
		Source:      domain.DonationSourceClient,
		ProcessedAt: processedAt,
	}
	if msg != "" {
		d.Message = &msg
	}
	donor := "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	d.DonorAddress = &donor
	return d
}
