package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// SubjectSessionCompleted is the NATS subject completed sessions publish to.
const SubjectSessionCompleted = "recallkit.sessions.completed"

// NATSSink publishes events to a NATS subject as JSON.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the given NATS URL.
func NewNATSSink(url string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("recallkit"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSSink{conn: conn, subject: SubjectSessionCompleted}, nil
}

func (s *NATSSink) Publish(_ context.Context, e SessionCompleted) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}

// MemorySink buffers events in memory. Used in tests and as the default
// sink when no broker is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []SessionCompleted
}

func (s *MemorySink) Publish(_ context.Context, e SessionCompleted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of everything published so far.
func (s *MemorySink) Events() []SessionCompleted {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionCompleted, len(s.events))
	copy(out, s.events)
	return out
}

// MultiSink fans one event out to several sinks, stopping at the first error.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, e SessionCompleted) error {
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
