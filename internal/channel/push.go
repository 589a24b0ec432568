package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/runnerr0/meander/internal/model"
	"github.com/runnerr0/meander/internal/offload"
)

const writeTimeout = 5 * time.Second

// Handler receives decoded frames from the push feed.
type Handler interface {
	HandleSnapshot(raw []byte)
	HandleDelta(d *model.Delta)
	HandleOffloadResponse(resp offload.Response)
}

// PushClient maintains one websocket connection to the daemon's push
// feed, decoding frames to its Handler and sending offload requests. It
// also implements offload.Sender.
type PushClient struct {
	url     string
	handler Handler
	logger  *slog.Logger

	mu   sync.Mutex // guards conn writes and replacement
	conn *websocket.Conn
}

// NewPush builds a push client for the given ws:// or wss:// URL.
func NewPush(url string, h Handler, logger *slog.Logger) *PushClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushClient{url: url, handler: h, logger: logger}
}

// Run dials the feed and reads frames until the context is cancelled or
// the connection drops. It returns the read error so the caller can
// decide whether to fall back to polling and redial.
func (c *PushClient) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial push feed: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	connID := uuid.NewString()
	c.logger.Info("push feed connected", "url", c.url, "conn", connID)

	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("push feed disconnected", "conn", connID, "error", err)
			return fmt.Errorf("read push feed: %w", err)
		}
		c.dispatch(msg)
	}
}

func (c *PushClient) dispatch(msg Message) {
	switch msg.Type {
	case TypeStateSnapshot:
		c.handler.HandleSnapshot(msg.State)
	case TypeStateDelta:
		if msg.Delta != nil {
			c.handler.HandleDelta(msg.Delta)
		}
	case TypeOffloadResponse:
		if msg.Response != nil {
			c.handler.HandleOffloadResponse(*msg.Response)
		}
	default:
		c.logger.Debug("ignoring unknown push frame", "type", msg.Type)
	}
}

// SendRequest writes an offload request frame to the feed.
func (c *PushClient) SendRequest(_ context.Context, req offload.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("send offload request: push feed not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(Message{Type: TypeOffloadRequest, Request: &req}); err != nil {
		return fmt.Errorf("send offload request: %w", err)
	}
	return nil
}

// Connected reports whether a connection is currently up.
func (c *PushClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears the connection down.
func (c *PushClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
