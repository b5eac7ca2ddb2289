package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// Subscriber implements ports.FrameSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and enables JetStream.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeFrames replays the last frame of every truck and then follows
// live frames. Frames are not acknowledged; a lost frame is superseded by
// the next one.
func (s *Subscriber) SubscribeFrames(ctx context.Context, handler func(ctx context.Context, f *domain.TruckFrame) error) error {
	sub, err := s.js.Subscribe("ecoalerta.truck.*.*", func(msg *nats.Msg) {
		var f domain.TruckFrame
		if err := json.Unmarshal(msg.Data, &f); err != nil {
			slog.Debug("drop malformed truck frame", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, &f); err != nil {
			slog.Debug("truck frame handler failed", "truck", f.TruckID, "error", err)
		}
	},
		nats.BindStream("TRUCK_FRAMES"),
		nats.DeliverLastPerSubject(),
		nats.AckNone(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeArrivals consumes arrivals with at-least-once delivery.
func (s *Subscriber) SubscribeArrivals(ctx context.Context, handler func(ctx context.Context, a *domain.TruckArrival) error) error {
	sub, err := s.js.Subscribe(SubjectArrivalPrefix+">", func(msg *nats.Msg) {
		var a domain.TruckArrival
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &a); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
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
