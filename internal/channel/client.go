package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
)

// ErrClientClosed is returned when emitting on a closed client.
var ErrClientClosed = errors.New("channel client closed")

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// Client maintains the WebSocket connection to the backend. Inbound frames
// are decoded and delivered in arrival order on a single Go channel, so
// consumers see a strictly serialized event stream. Reconnection is handled
// internally and is opaque to consumers.
type Client struct {
	url    string
	connID string
	dialer *websocket.Dialer
	log    *logging.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	seq    atomic.Int64

	events chan domain.Event
	done   chan struct{}
}

// NewClient creates a client for the given WebSocket URL. Connect must be
// called before emitting.
func NewClient(url string, log *logging.Logger) *Client {
	return &Client{
		url:    url,
		connID: uuid.New().String(),
		dialer: websocket.DefaultDialer,
		log:    log.Sub("channel"),
		events: make(chan domain.Event, 64),
		done:   make(chan struct{}),
	}
}

// Connect dials the backend and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Str("connId", c.connID).Msg("connected")

	go c.readLoop()
	return nil
}

// Events returns the ordered inbound event stream. The channel is closed
// when the client shuts down; events arriving afterwards are dropped.
func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// Emit sends a named event with payload. Thread-safe.
func (c *Client) Emit(event string, payload any) error {
	f, err := NewFrame(event, payload, c.seq.Add(1))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.conn == nil {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(f)
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// readLoop reads frames until the client closes, reconnecting on transport
// errors with capped exponential backoff.
func (c *Client) readLoop() {
	defer close(c.events)

	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return
		}

		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if c.isClosed() {
				return
			}
			c.log.Warn().Err(err).Msg("read failed, reconnecting")
			if !c.reconnect() {
				return
			}
			continue
		}

		evt, err := DecodeEvent(f)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				c.log.Debug().Str("event", f.Event).Msg("ignoring unknown event")
			} else {
				c.log.Warn().Err(err).Str("event", f.Event).Msg("dropping malformed event")
			}
			continue
		}

		select {
		case c.events <- evt:
		case <-c.done:
			return
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// reconnect dials until it succeeds or the client closes. Returns false when
// the client closed while waiting.
func (c *Client) reconnect() bool {
	backoff := reconnectBase
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(backoff):
		}

		conn, _, err := c.dialer.Dial(c.url, nil)
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				conn.Close()
				return false
			}
			c.conn = conn
			c.mu.Unlock()
			c.log.Info().Str("url", c.url).Msg("reconnected")
			return true
		}

		c.log.Warn().Err(err).Dur("backoff", backoff).Msg("reconnect failed")
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}
