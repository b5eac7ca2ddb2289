package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// Subject layout for truck simulation events.
const (
	SubjectAll           = "ecoalerta.truck.>"
	SubjectFleetPrefix   = "ecoalerta.truck.fleet."
	SubjectFollowPrefix  = "ecoalerta.truck.follow."
	SubjectArrivalPrefix = "ecoalerta.truck.arrival."
)

// FrameSubject returns the subject a frame is published on: fleet trucks by
// truck ID, follow trucks by report ID.
func FrameSubject(f *domain.TruckFrame) string {
	if f.Mode == domain.ModeFollow && f.ReportID != "" {
		return SubjectFollowPrefix + f.ReportID
	}
	return SubjectFleetPrefix + f.TruckID
}

// ArrivalSubject returns the subject an arrival is published on.
func ArrivalSubject(a *domain.TruckArrival) string {
	return SubjectArrivalPrefix + a.ReportID
}

// Publisher implements ports.FramePublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream(nats.PublishAsyncMaxPending(1024))
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			// Last known position per truck; late subscribers start from it.
			Name:              "TRUCK_FRAMES",
			Subjects:          []string{SubjectFleetPrefix + ">", SubjectFollowPrefix + ">"},
			Retention:         nats.LimitsPolicy,
			MaxMsgsPerSubject: 1,
			MaxAge:            10 * time.Minute,
			Storage:           nats.MemoryStorage,
		},
		{
			Name:      "TRUCK_ARRIVALS",
			Subjects:  []string{SubjectArrivalPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishFrame sends a frame without waiting for the server ack so the
// animation loop never blocks on the broker.
func (p *Publisher) PublishFrame(ctx context.Context, f *domain.TruckFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(FrameSubject(f), data)
	return err
}

// PublishArrival sends an arrival and waits for it to be stored.
func (p *Publisher) PublishArrival(ctx context.Context, a *domain.TruckArrival) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ArrivalSubject(a), data, nats.Context(ctx))
	return err
}

// Close waits briefly for pending async publishes, then drains.
func (p *Publisher) Close() {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(2 * time.Second):
	}
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("ecoalerta"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
