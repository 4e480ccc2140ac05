package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeClaimCommitted delivers committed-claim events to handler on the
// durable "minter" consumer. A handler error naks the message for redelivery.
func (s *Subscriber) SubscribeClaimCommitted(ctx context.Context, handler func(ctx context.Context, event *domain.ClaimEvent) error) error {
	sub, err := s.js.Subscribe(SubjectClaimsCommitted, func(msg *nats.Msg) {
		var event domain.ClaimEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("dropping malformed claim event", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			slog.Warn("claim event handler failed, redelivering", "claim_id", event.Claim.ID, "error", err)
			_ = msg.Nak()
			return
		}
		if err := msg.Ack(); err != nil {
			// The event will be redelivered; handlers are keyed per claim.
			slog.Warn("claim event ack failed", "claim_id", event.Claim.ID, "error", err)
		}
	},
		nats.Durable("minter"),
		nats.ManualAck(),
		nats.MaxDeliver(5),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
