package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

const (
	SubjectRoutePrefix   = "mapdump.route."
	SubjectMapCalibrated = "mapdump.map.calibrated"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:       "MAPDUMP_ROUTES",
			Subjects:   []string{SubjectRoutePrefix + ">"},
			Retention:  nats.WorkQueuePolicy,
			MaxAge:     24 * time.Hour,
			Storage:    nats.FileStorage,
			Duplicates: 2 * time.Minute,
		},
		{
			Name:      "MAPDUMP_MAPS",
			Subjects:  []string{"mapdump.map.>"},
			Retention: nats.InterestPolicy,
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

// PublishRouteEvent publishes on mapdump.route.<kind>. The event ID doubles
// as the JetStream dedupe key.
func (p *Publisher) PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return p.publish(ctx, SubjectRoutePrefix+event.Kind, event.ID, event)
}

func (p *Publisher) PublishMapEvent(ctx context.Context, event *domain.MapEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return p.publish(ctx, SubjectMapCalibrated, event.ID, event)
}

func (p *Publisher) publish(ctx context.Context, subject, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.MsgId(id), nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
