// Package wsbridge is the reference external-transport adapter for the hook
// bus: it implements hookbus.Sender over a WebSocket connection, grounded
// on the teacher's internal/infrastructure/websocket Hub/Client/observer
// broadcast path.
package wsbridge

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/arcflow/mbflow/internal/hookbus"
)

// Envelope is the wire shape of spec §6.3's hook event envelope.
type Envelope struct {
	Type        string         `json:"type"`
	WorkflowID  string         `json:"workflowId"`
	ExecutionID string         `json:"executionId"`
	NodeID      *string        `json:"nodeId"`
	TimestampMS int64          `json:"timestamp"`
	Data        map[string]any `json:"data"`
	Severity    *string        `json:"severity"`
}

// ToEnvelope converts a hookbus.Event into its wire envelope, using nil for
// the fields spec §6.3 marks as nullable rather than empty-string sentinels.
func ToEnvelope(ev hookbus.Event) Envelope {
	env := Envelope{
		Type:        string(ev.Kind),
		WorkflowID:  ev.WorkflowID,
		ExecutionID: ev.ExecutionID,
		TimestampMS: ev.TimestampMS,
		Data:        ev.Data,
	}
	if ev.NodeID != "" {
		id := ev.NodeID
		env.NodeID = &id
	}
	if ev.Severity != "" {
		sev := string(ev.Severity)
		env.Severity = &sev
	}
	return env
}

// Sender adapts a single gorilla/websocket connection to hookbus.Sender.
// It is the single-producer/single-consumer transport named in spec §5:
// the hook bus is the producer, this connection is the consumer.
type Sender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// New wraps an established WebSocket connection as a hook bus transport.
func New(conn *websocket.Conn) *Sender {
	return &Sender{conn: conn}
}

// Send implements hookbus.Sender. It returns false (causing the bus to
// buffer the event) on any write error or when the connection is nil,
// mirroring the teacher Hub's "client buffer full, dropping message"
// fallback instead of panicking the caller.
func (s *Sender) Send(ev hookbus.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return false
	}
	env := ToEnvelope(ev)
	if err := s.conn.WriteJSON(env); err != nil {
		return false
	}
	return true
}

// Close closes the underlying connection. Further Send calls return false.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
