package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Socket Mode envelope types.
const (
	EnvelopeHello       = "hello"
	EnvelopeEventsAPI   = "events_api"
	EnvelopeInteractive = "interactive"
	EnvelopeDisconnect  = "disconnect"
)

// errDisconnect is returned by consume when Slack asks the client to
// reconnect.
var errDisconnect = errors.New("slack socket: server requested disconnect")

// Envelope is one Socket Mode frame.
type Envelope struct {
	Type         string          `json:"type"`
	EnvelopeID   string          `json:"envelope_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	RetryAttempt int             `json:"retry_attempt,omitempty"`
	RetryReason  string          `json:"retry_reason,omitempty"`
}

// socket serializes writes on a Socket Mode connection; gorilla/websocket
// allows one concurrent writer.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ack acknowledges an envelope.
func (s *socket) ack(envelopeID string) error {
	if envelopeID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(struct {
		EnvelopeID string `json:"envelope_id"`
	}{EnvelopeID: envelopeID})
}

// consume reads envelopes until the connection fails, Slack sends a
// disconnect or ctx is cancelled. Each envelope other than hello and
// disconnect is passed to handle; an error from handle is logged and does
// not stop the loop.
func (s *socket) consume(ctx context.Context, handle func(Envelope)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read slack socket: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("slack socket: undecodable frame", "err", err)
			continue
		}

		switch env.Type {
		case EnvelopeHello:
			slog.Debug("slack socket: hello")
		case EnvelopeDisconnect:
			slog.Info("slack socket: disconnect requested", "reason", env.Reason)
			return errDisconnect
		default:
			handle(env)
		}
	}
}
