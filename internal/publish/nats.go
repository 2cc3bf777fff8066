package publish

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes to a JetStream subject. The message id doubles as
// the JetStream de-duplication id.
type NATSPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

func newNATSPublisher(url, username, password string) (*NATSPublisher, error) {
	opts := []nats.Option{nats.Name("halin")}
	if username != "" {
		opts = append(opts, nats.UserInfo(username, password))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &NATSPublisher{conn: conn, js: js}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, msg Message) error {
	m := nats.NewMsg(msg.Subject)
	m.Data = msg.Data
	m.Header.Set("Content-Encoding", Encoding)
	if _, err := p.js.PublishMsg(m, nats.MsgId(msg.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *NATSPublisher) Name() string { return TypeNATS }

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
