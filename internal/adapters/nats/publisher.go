package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

const (
	StreamClaims           = "QUEST_CLAIMS"
	SubjectClaimsAll       = "quest.claims.>"
	SubjectClaimsCommitted = "quest.claims.committed"
	SubjectClaimsReleased  = "quest.claims.released"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	now  func() time.Time
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js, now: time.Now}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      StreamClaims,
		Subjects:  []string{SubjectClaimsAll},
		Retention: nats.InterestPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

func (p *Publisher) PublishClaimCommitted(ctx context.Context, claim *domain.ClaimRecord) error {
	return p.publish(ctx, SubjectClaimsCommitted, &domain.ClaimEvent{
		Type:       domain.ClaimCommitted,
		Claim:      *claim,
		OccurredAt: p.now().UTC(),
	})
}

func (p *Publisher) PublishClaimReleased(ctx context.Context, claim *domain.ClaimRecord, reason string) error {
	return p.publish(ctx, SubjectClaimsReleased, &domain.ClaimEvent{
		Type:       domain.ClaimReleased,
		Claim:      *claim,
		Reason:     reason,
		OccurredAt: p.now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, event *domain.ClaimEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Msg-Id lets JetStream drop duplicates of the same transition.
	msgID := string(event.Type) + ":" + event.Claim.MetadataID + ":" + event.Claim.UserAddress + ":" + event.Claim.ID
	_, err = p.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(msgID))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Conn returns the underlying connection (for health checks).
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
