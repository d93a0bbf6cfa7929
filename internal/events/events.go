// Package events fans order lifecycle events out to other consumers
// (kitchen displays, other floors) over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/nats-io/nats.go"
)

// Publisher sends a message on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, msg []byte) error
}

// OrderEvent is the payload for every order subject.
type OrderEvent struct {
	Type  string      `json:"type"`
	Order model.Order `json:"order"`
}

// PublishOrder encodes o under subject and publishes it.
func PublishOrder(ctx context.Context, p Publisher, subject string, o model.Order) error {
	msg, err := json.Marshal(OrderEvent{Type: subject, Order: o})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	return p.Publish(ctx, subject, msg)
}

// NATSPublisher publishes over a core NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("takeorderhd"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, msg []byte) error {
	return p.conn.Publish(subject, msg)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NoopPublisher drops every message. Used when no NATS_URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
