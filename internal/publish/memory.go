package publish

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPublisher keeps messages in process. Used by tests and by the
// dashboard when no broker is configured.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages map[string][]Message
	closed   bool
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{messages: make(map[string][]Message)}
}

func (p *MemoryPublisher) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher closed")
	}
	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)
	msg.Data = data
	p.messages[msg.Subject] = append(p.messages[msg.Subject], msg)
	return nil
}

// Messages returns the messages published on subject, oldest first.
func (p *MemoryPublisher) Messages(subject string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages[subject]))
	copy(out, p.messages[subject])
	return out
}

func (p *MemoryPublisher) Name() string { return TypeMemory }

func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
