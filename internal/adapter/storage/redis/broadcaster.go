package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Broadcaster fans ledger inserts out over Redis pub/sub, one channel per
// recipient. It implements both ports.Broadcaster and ports.Subscriber.
type Broadcaster struct {
	client           *goredis.Client
	prefix           string
	handshakeTimeout time.Duration
	log              zerolog.Logger
}

// NewBroadcaster creates a pub/sub broadcaster. handshakeTimeout bounds how
// long Subscribe waits for the server to confirm the subscription.
func NewBroadcaster(client *goredis.Client, handshakeTimeout time.Duration, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		client:           client,
		prefix:           "donations:",
		handshakeTimeout: handshakeTimeout,
		log:              log,
	}
}

// Channel returns the pub/sub channel name for a recipient.
func (b *Broadcaster) Channel(recipientID uuid.UUID) string {
	return b.prefix + recipientID.String()
}

// Publish announces a newly inserted donation to the recipient's subscribers.
func (b *Broadcaster) Publish(ctx context.Context, d *domain.Donation) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode donation: %w", err)
	}
	if err := b.client.Publish(ctx, b.Channel(d.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe opens a subscription and blocks until the server confirms it.
func (b *Broadcaster) Subscribe(ctx context.Context, recipientID uuid.UUID) (ports.Subscription, error) {
	channel := b.Channel(recipientID)
	ps := b.client.Subscribe(ctx, channel)

	reply, err := ps.ReceiveTimeout(ctx, b.handshakeTimeout)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe handshake: %w", err)
	}
	if _, ok := reply.(*goredis.Subscription); !ok {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe handshake: unexpected reply %T", reply)
	}

	sub := &subscription{
		ps:     ps,
		out:    make(chan domain.Donation, 16),
		closed: make(chan struct{}),
		log:    b.log.With().Str("channel", channel).Logger(),
	}
	go sub.run()
	return sub, nil
}

type subscription struct {
	ps        *goredis.PubSub
	out       chan domain.Donation
	log       zerolog.Logger
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *subscription) Donations() <-chan domain.Donation {
	return s.out
}

// Close stops delivery. The Donations channel is closed once the reader exits.
func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.ps.Close()
	})
	return err
}

// run reads until the first receive error. Reconnection is left to the
// caller, which falls back to polling instead.
func (s *subscription) run() {
	defer close(s.out)
	ctx := context.Background()
	for {
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.log.Warn().Err(err).Msg("Push subscription failed")
			}
			return
		}

		var d domain.Donation
		if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
			s.log.Warn().Err(err).Msg("Dropping undecodable push message")
			continue
		}

		select {
		case s.out <- d:
		case <-s.closed:
			return
		}
	}
}
