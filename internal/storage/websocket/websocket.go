// Package websocket streams the movement journal to a live viewer.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/geoshape/extension/pkg/core"
	"github.com/geoshape/extension/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL       string
	Secret    string
	Extension string
	Version   string
	Logger    *slog.Logger
}

// Backend streams journal records to a viewer. Steps are fire-and-forget;
// the session boundaries wait for the server's ack.
type Backend struct {
	conn *connection
	cfg  Config
	now  func() time.Time
}

// New creates a new WebSocket journal backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
		now:  time.Now,
	}
}

// Init connects and announces the session.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	hello, err := marshalEnvelope(streaming.TypeSessionStart, streaming.SessionStartPayload{
		Extension: b.cfg.Extension,
		Version:   b.cfg.Version,
		StartedAt: b.now().UTC(),
	})
	if err != nil {
		return err
	}
	b.conn.mu.Lock()
	b.conn.hello = hello
	b.conn.mu.Unlock()

	if err := b.conn.sendAndWait(hello, streaming.TypeSessionStart, ackTimeout); err != nil {
		_ = b.conn.close()
		return err
	}
	return nil
}

// Close ends the session and disconnects. The connection is closed even
// when the server never acknowledges the end.
func (b *Backend) Close() error {
	data, err := marshalEnvelope(streaming.TypeSessionEnd, nil)
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeSessionEnd, ackTimeout)
	}
	if cerr := b.conn.close(); err == nil {
		err = cerr
	}
	return err
}

func (b *Backend) RecordStep(s *core.StepRecord) error {
	return b.sendEnvelope(streaming.TypeStep, s)
}

func (b *Backend) RecordInterception(i *core.InterceptionRecord) error {
	return b.sendEnvelope(streaming.TypeInterception, i)
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}
