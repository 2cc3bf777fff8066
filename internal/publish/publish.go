// Package publish ships diagnostics packages to a message broker.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/model"
)

// Encoding names the payload format carried in message headers.
const Encoding = "application/json+snappy"

// Message is one encoded diagnostics package.
type Message struct {
	ID      string
	Subject string
	Data    []byte
}

// Publisher delivers messages to one backend.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Name() string
	Close() error
}

// Encode serializes pkg as JSON and compresses it with snappy.
func Encode(subject string, pkg *model.Package) (Message, error) {
	raw, err := json.Marshal(pkg)
	if err != nil {
		return Message{}, fmt.Errorf("Encode: %w", err)
	}
	return Message{
		ID:      uuid.NewString(),
		Subject: subject,
		Data:    snappy.Encode(nil, raw),
	}, nil
}

// Decoded is the consumer-side view of a published package. Record values
// arrive as generic JSON.
type Decoded struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Nodes       []model.NodeDiagnostics `json:"nodes"`
	Records     []model.Record          `json:"records"`
}

// Decode reverses Encode.
func Decode(data []byte) (*Decoded, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	var d Decoded
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("Decode: %w", err)
	}
	return &d, nil
}

// Exporter encodes packages and hands them to a Publisher.
type Exporter struct {
	pub     Publisher
	subject string
	log     *logging.Logger
}

// NewExporter returns an Exporter publishing on subject.
func NewExporter(pub Publisher, subject string, log *logging.Logger) *Exporter {
	if log == nil {
		log = logging.Global()
	}
	return &Exporter{pub: pub, subject: subject, log: log}
}

// Export publishes pkg and returns the message id.
func (e *Exporter) Export(ctx context.Context, pkg *model.Package) (string, error) {
	msg, err := Encode(e.subject, pkg)
	if err != nil {
		return "", err
	}
	if err := e.pub.Publish(ctx, msg); err != nil {
		metrics.Published.WithLabelValues(e.pub.Name(), "error").Inc()
		e.log.Warn("publish failed", "backend", e.pub.Name(), "subject", e.subject, "error", err)
		return "", fmt.Errorf("Export %s: %w", e.pub.Name(), err)
	}
	metrics.Published.WithLabelValues(e.pub.Name(), "ok").Inc()
	e.log.Info("diagnostics published",
		"backend", e.pub.Name(), "subject", e.subject, "id", msg.ID, "bytes", len(msg.Data))
	return msg.ID, nil
}
