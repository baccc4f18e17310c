package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/geoshape/extension/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection owns one live socket at a time. A single writer goroutine
// drains sendCh; a reader routes acks to ackCh.
type connection struct {
	mu      sync.Mutex
	conn    *ws.Conn
	sendCh  chan []byte
	ackCh   chan streaming.AckMessage
	done    chan struct{} // closed on shutdown
	closed  bool
	dropped uint64

	target string

	// session_start is replayed after a reconnect.
	hello []byte

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// streamURL appends the shared secret to rawURL.
func streamURL(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dial connects and starts serving the socket.
func (c *connection) dial(rawURL, secret string) error {
	target, err := streamURL(rawURL, secret)
	if err != nil {
		return err
	}
	c.target = target

	conn, err := c.open()
	if err != nil {
		return err
	}
	c.serve(conn)
	return nil
}

func (c *connection) open() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// serve installs conn as the live socket and runs its reader and writer.
// Whichever fails first triggers one reconnect.
func (c *connection) serve(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	var once sync.Once
	stop := make(chan struct{})
	lost := func(err error) {
		once.Do(func() {
			close(stop)
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket connection lost", "error", err)
			go c.reconnect(conn)
		})
	}

	go c.writeLoop(conn, stop, lost)
	go c.readLoop(conn, lost)
}

func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}, lost func(error)) {
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data := <-c.sendCh:
			if err := writeFrame(conn, data); err != nil {
				lost(err)
				return
			}
		}
	}
}

func (c *connection) readLoop(conn *ws.Conn, lost func(error)) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			lost(err)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring server message", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	return min(2*d, maxBackoff)
}

// reconnect replaces the failed socket, backing off exponentially. The viewer
// gets session_start again before any queued step.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn == failed {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = failed.Close()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt)
		conn, err := c.open()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = nextBackoff(backoff)
			continue
		}

		c.mu.Lock()
		hello := c.hello
		c.mu.Unlock()
		if hello != nil {
			if err := writeFrame(conn, hello); err != nil {
				c.logger.Warn("Failed to replay session_start", "attempt", attempt, "error", err)
				_ = conn.Close()
				backoff = nextBackoff(backoff)
				continue
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.serve(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send queues data for the writer. It drops the message when the writer is behind.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
		return
	default:
	}

	c.mu.Lock()
	c.dropped++
	n := c.dropped
	c.mu.Unlock()
	if n == 1 || n%1000 == 0 {
		c.logger.Warn("WebSocket send channel full, dropping message", "dropped", n)
	}
}

// sendAndWait queues data and blocks until the server acks msgType.
func (c *connection) sendAndWait(data []byte, msgType string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == msgType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", msgType)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", msgType)
		}
	}
}

// close sends a close frame and stops every goroutine. Further calls are no-ops.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return conn.Close()
}
