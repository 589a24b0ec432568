// Package offload hands heavy derivations (session summaries, node
// categorization) to an external worker over the push channel and
// correlates the asynchronous responses back to their callers.
package offload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runnerr0/meander/internal/clock"
)

// Request kinds understood by the worker.
const (
	KindSummary    = "summary"
	KindCategorize = "categorize"
)

const (
	defaultTimeout    = 4 * time.Second
	defaultMaxPending = 80
)

// Request is one unit of work sent to the worker. IDs are monotonic per
// coordinator and never reused, including across send failures.
type Request struct {
	ID        uint64          `json:"id"`
	Kind      string          `json:"kind"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response is the worker's answer to one Request.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Sender transmits a request to the worker.
type Sender interface {
	SendRequest(ctx context.Context, req Request) error
}

// Callback receives the result for a dispatched request. A nil result
// means the request timed out, was evicted, failed to send, or the
// channel tore down; callers fall back to computing locally.
type Callback func(result json.RawMessage)

// Options configure a Coordinator. Zero values pick the defaults.
type Options struct {
	Clock      clock.Clock
	Timeout    time.Duration
	MaxPending int
	Logger     *slog.Logger
}

// Coordinator tracks in-flight offload requests: it assigns ids, times
// out stragglers, evicts the oldest entry when the pending set is full,
// and drops responses whose id is no longer known.
type Coordinator struct {
	mu      sync.Mutex
	sender  Sender
	clk     clock.Clock
	timeout time.Duration
	maxPend int
	logger  *slog.Logger

	nextID  uint64
	pending map[uint64]*pendingRequest
	order   []uint64
}

type pendingRequest struct {
	id    uint64
	cb    Callback
	timer clock.Timer
}

// New builds a coordinator over the given sender. A nil sender makes
// every dispatch resolve synchronously to nil.
func New(sender Sender, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = defaultMaxPending
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		sender:  sender,
		clk:     opts.Clock,
		timeout: opts.Timeout,
		maxPend: opts.MaxPending,
		logger:  opts.Logger,
		pending: make(map[uint64]*pendingRequest),
	}
}

// Dispatch sends one request and registers cb for its response. The
// returned id identifies the request; on send failure cb has already
// been resolved to nil before Dispatch returns.
func (c *Coordinator) Dispatch(ctx context.Context, kind, sessionID string, payload json.RawMessage, cb Callback) (uint64, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	req := Request{ID: id, Kind: kind, SessionID: sessionID, Payload: payload}
	if c.sender == nil {
		cb(nil)
		return id, fmt.Errorf("dispatch %s: no worker channel", kind)
	}

	// Register before sending so a response that races the send still
	// finds its pending entry.
	c.mu.Lock()
	var evicted *pendingRequest
	if len(c.pending) >= c.maxPend {
		evicted = c.evictOldestLocked()
	}
	p := &pendingRequest{id: id, cb: cb}
	p.timer = c.clk.AfterFunc(c.timeout, func() { c.expire(id) })
	c.pending[id] = p
	c.order = append(c.order, id)
	c.mu.Unlock()

	if evicted != nil {
		c.logger.Debug("offload request evicted", "id", evicted.id)
		evicted.cb(nil)
	}

	if err := c.sender.SendRequest(ctx, req); err != nil {
		c.mu.Lock()
		_, still := c.pending[id]
		if still {
			c.removeLocked(id)
		}
		c.mu.Unlock()
		if still {
			cb(nil)
		}
		return id, fmt.Errorf("dispatch %s: %w", kind, err)
	}
	return id, nil
}

// HandleResponse resolves the matching pending request. Responses whose
// id is unknown (already timed out, evicted, or torn down) are dropped.
func (c *Coordinator) HandleResponse(resp Response) {
	c.mu.Lock()
	p, ok := c.pending[resp.ID]
	if ok {
		c.removeLocked(resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("dropping response for unknown offload request", "id", resp.ID)
		return
	}
	if resp.Error != "" {
		c.logger.Warn("offload request failed remotely", "id", resp.ID, "error", resp.Error)
		p.cb(nil)
		return
	}
	p.cb(resp.Result)
}

// Fail tears down every pending request, resolving each to nil. Called
// when the worker channel drops.
func (c *Coordinator) Fail(err error) {
	c.mu.Lock()
	torn := make([]*pendingRequest, 0, len(c.pending))
	for _, id := range c.order {
		if p, ok := c.pending[id]; ok {
			p.timer.Stop()
			torn = append(torn, p)
		}
	}
	c.pending = make(map[uint64]*pendingRequest)
	c.order = nil
	c.mu.Unlock()

	if len(torn) > 0 {
		c.logger.Warn("offload channel down, failing pending requests",
			"pending", len(torn), "error", err)
	}
	for _, p := range torn {
		p.cb(nil)
	}
}

// PendingCount returns the number of requests awaiting a response.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) expire(id uint64) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		c.removeLocked(id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	c.logger.Debug("offload request timed out", "id", id)
	p.cb(nil)
}

// evictOldestLocked pops the oldest pending request so a new one fits.
func (c *Coordinator) evictOldestLocked() *pendingRequest {
	for len(c.order) > 0 {
		id := c.order[0]
		c.order = c.order[1:]
		if p, ok := c.pending[id]; ok {
			p.timer.Stop()
			delete(c.pending, id)
			return p
		}
	}
	return nil
}

func (c *Coordinator) removeLocked(id uint64) {
	if p, ok := c.pending[id]; ok {
		p.timer.Stop()
		delete(c.pending, id)
	}
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
