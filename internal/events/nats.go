package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher fans structural changes out on a core NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(natsURL, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("tourney-engine"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish(p.subject+"."+string(e.Type), data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}
