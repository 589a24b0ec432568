// Package sync owns the live state lifecycle: it loads and normalizes
// the persisted document, feeds the reconciler from the daemon's push
// feed with HTTP polling as fallback, persists every applied change, and
// routes offload traffic.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/runnerr0/meander/internal/analytics"
	"github.com/runnerr0/meander/internal/cache"
	"github.com/runnerr0/meander/internal/channel"
	"github.com/runnerr0/meander/internal/clock"
	"github.com/runnerr0/meander/internal/model"
	"github.com/runnerr0/meander/internal/normalize"
	"github.com/runnerr0/meander/internal/offload"
	"github.com/runnerr0/meander/internal/reconcile"
	"github.com/runnerr0/meander/internal/store"
)

const (
	defaultPollInterval = 5 * time.Second
	redialBackoff       = 2 * time.Second
	summaryCacheSize    = 100
	summaryQueueLimit   = 50
)

// Options configure a Coordinator.
type Options struct {
	Store     store.Store
	Client    *channel.Client
	Push      *channel.PushClient // built by the coordinator when nil and PushURL is set
	PushURL   string
	Clock     clock.Clock
	Logger    *slog.Logger
	Analytics analytics.Settings

	PollInterval   time.Duration
	Batching       bool
	BatchWindow    time.Duration
	ReconcileDelay time.Duration
	OffloadTimeout time.Duration
	OffloadMax     int
}

// Summary is a derived session summary, either offloaded or computed
// locally as fallback.
type Summary struct {
	Brief    string `json:"brief"`
	Detailed string `json:"detailed"`
}

// Coordinator is the composition root for the live state: every state
// read and mutation flows through it.
type Coordinator struct {
	opts      Options
	logger    *slog.Logger
	clk       clock.Clock
	engine    *reconcile.Engine
	analytics *analytics.Engine
	offload   *offload.Coordinator
	push      *channel.PushClient

	summaries *cache.Cache[string, cache.Fingerprinted[analytics.Fingerprint, Summary]]

	queueMu      stdsync.Mutex
	summaryQueue []string
}

// New loads and normalizes the persisted state and assembles the
// coordinator. Undecodable or missing persisted state starts empty.
func New(ctx context.Context, opts Options) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("new coordinator: store is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	c := &Coordinator{
		opts:      opts,
		logger:    opts.Logger,
		clk:       opts.Clock,
		summaries: cache.New[string, cache.Fingerprinted[analytics.Fingerprint, Summary]](summaryCacheSize),
	}

	initial, err := c.loadInitial(ctx)
	if err != nil {
		return nil, err
	}

	c.analytics = analytics.NewEngine(opts.Analytics)

	var actions reconcile.Actions
	var snapshots reconcile.Snapshots
	if opts.Client != nil {
		actions = opts.Client
		snapshots = &snapshotAdapter{client: opts.Client}
	}
	c.engine = reconcile.NewEngine(initial, reconcile.Options{
		Clock:          opts.Clock,
		Batching:       opts.Batching,
		BatchWindow:    opts.BatchWindow,
		ReconcileDelay: opts.ReconcileDelay,
		Actions:        actions,
		Snapshots:      snapshots,
		Logger:         opts.Logger,
		OnChange:       c.persist,
	})

	c.push = opts.Push
	if c.push == nil && opts.PushURL != "" {
		c.push = channel.NewPush(opts.PushURL, c, opts.Logger)
	}

	var sender offload.Sender
	if c.push != nil {
		sender = c.push
	}
	c.offload = offload.New(sender, offload.Options{
		Clock:      opts.Clock,
		Timeout:    opts.OffloadTimeout,
		MaxPending: opts.OffloadMax,
		Logger:     opts.Logger,
	})

	return c, nil
}

// loadInitial reads the persisted blob and normalizes it. Anything the
// normalizer rejects is logged and replaced with an empty state.
func (c *Coordinator) loadInitial(ctx context.Context) (*model.State, error) {
	raw, err := c.opts.Store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted state: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	st, ok := normalize.Normalize(raw)
	if !ok {
		c.logger.Warn("persisted state unrecognized, starting empty", "bytes", len(raw))
		return nil, nil
	}
	return st, nil
}

// Run drives the push feed (with redial) and the polling fallback until
// the context is cancelled. The final state is persisted on the way out.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.push != nil {
		go c.pushLoop(ctx)
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.engine.Flush()
			c.persist(c.engine.State())
			return ctx.Err()
		case <-ticker.C:
			if c.push != nil && c.push.Connected() {
				continue
			}
			if err := c.pollOnce(ctx); err != nil {
				c.logger.Debug("snapshot poll failed", "error", err)
			}
		}
	}
}

// pushLoop keeps the websocket feed alive, failing pending offload
// requests and backing off between redials.
func (c *Coordinator) pushLoop(ctx context.Context) {
	for {
		err := c.push.Run(ctx)
		c.offload.Fail(err)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialBackoff):
		}
	}
}

// pollOnce fetches a full snapshot over HTTP and feeds it through the
// same path a pushed snapshot takes.
func (c *Coordinator) pollOnce(ctx context.Context) error {
	if c.opts.Client == nil {
		return nil
	}
	raw, err := c.opts.Client.FetchRawState(ctx)
	if err != nil {
		return err
	}
	c.HandleSnapshot(raw)
	return nil
}

// HandleSnapshot normalizes a full state document and hands it to the
// reconciler as a wholesale replacement.
func (c *Coordinator) HandleSnapshot(raw []byte) {
	st, ok := normalize.Normalize(raw)
	if !ok {
		c.logger.Warn("dropping unrecognized state snapshot", "bytes", len(raw))
		return
	}
	c.engine.Receive(&model.Delta{State: st})
}

// HandleDelta forwards one pushed delta to the reconciler.
func (c *Coordinator) HandleDelta(d *model.Delta) {
	c.engine.Receive(d)
}

// HandleOffloadResponse resolves one offload result.
func (c *Coordinator) HandleOffloadResponse(resp offload.Response) {
	c.offload.HandleResponse(resp)
}

// persist writes the normalized encoding of the state to the store.
// Runs from the reconciler's change hook.
func (c *Coordinator) persist(st *model.State) {
	raw, err := normalize.Encode(st)
	if err != nil {
		c.logger.Error("encode state for persistence", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.opts.Store.SaveState(ctx, raw); err != nil {
		c.logger.Error("persist state", "error", err)
	}
}

// State returns the live state.
func (c *Coordinator) State() *model.State {
	return c.engine.State()
}

// SessionStats returns derived analytics for one session.
func (c *Coordinator) SessionStats(sessionID string) (*analytics.SessionStats, error) {
	s, ok := c.engine.State().Sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	return c.analytics.SessionStats(s), nil
}

// Insights returns the derived insight lines for one session.
func (c *Coordinator) Insights(sessionID string) ([]analytics.Insight, error) {
	s, ok := c.engine.State().Sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	return c.analytics.Insights(s), nil
}

// CommonStartDomain reports the domain sessions most often start from.
func (c *Coordinator) CommonStartDomain() string {
	return analytics.CommonStartDomain(c.engine.State())
}

// ToggleFavorite applies the edit optimistically and audits it.
func (c *Coordinator) ToggleFavorite(ctx context.Context, sessionID string) error {
	if err := c.engine.ToggleFavorite(ctx, sessionID); err != nil {
		return err
	}
	return c.audit(ctx, store.AuditFavoriteToggle, sessionID)
}

// DeleteSession applies the edit optimistically and audits it.
func (c *Coordinator) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.engine.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	return c.audit(ctx, store.AuditSessionDeleted, sessionID)
}

// RestoreSession applies the edit optimistically and audits it.
func (c *Coordinator) RestoreSession(ctx context.Context, sessionID string) error {
	if err := c.engine.RestoreSession(ctx, sessionID); err != nil {
		return err
	}
	return c.audit(ctx, store.AuditSessionRestore, sessionID)
}

// Reset clears the live state, the persisted document, and the caches.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.engine.Reset(ctx); err != nil {
		return err
	}
	c.summaries.Purge()
	c.queueMu.Lock()
	c.summaryQueue = nil
	c.queueMu.Unlock()
	return c.opts.Store.Reset(ctx)
}

// Refresh pulls an authoritative snapshot immediately.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.opts.Client == nil {
		return fmt.Errorf("refresh: no daemon configured")
	}
	return c.pollOnce(ctx)
}

func (c *Coordinator) audit(ctx context.Context, action, detail string) error {
	if err := c.opts.Store.Audit(ctx, action, detail); err != nil {
		c.logger.Warn("audit write failed", "action", action, "error", err)
	}
	return nil
}

// snapshotAdapter satisfies the reconciler's snapshot puller by fetching
// the raw document and normalizing it.
type snapshotAdapter struct {
	client *channel.Client
}

func (a *snapshotAdapter) FetchState(ctx context.Context) (*model.State, error) {
	raw, err := a.client.FetchRawState(ctx)
	if err != nil {
		return nil, err
	}
	st, ok := normalize.Normalize(raw)
	if !ok {
		return nil, fmt.Errorf("daemon returned unrecognized state document")
	}
	return st, nil
}

// Summary returns the session's summary, serving from cache when the
// session has not changed, and otherwise dispatching an offload request
// (falling back to a locally computed summary when the worker cannot
// serve it).
func (c *Coordinator) Summary(ctx context.Context, sessionID string) (Summary, error) {
	s, ok := c.engine.State().Sessions[sessionID]
	if !ok {
		return Summary{}, fmt.Errorf("session %q not found", sessionID)
	}
	fp := analytics.FingerprintOf(s)
	if cached, ok := cache.Lookup(c.summaries, sessionID, fp); ok {
		return cached, nil
	}

	c.queueMu.Lock()
	if len(c.summaryQueue) >= summaryQueueLimit {
		c.summaryQueue = c.summaryQueue[1:]
	}
	c.summaryQueue = append(c.summaryQueue, sessionID)
	c.queueMu.Unlock()

	payload, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err != nil {
		return Summary{}, fmt.Errorf("marshal summary request: %w", err)
	}

	done := make(chan Summary, 1)
	_, dispatchErr := c.offload.Dispatch(ctx, offload.KindSummary, sessionID, payload, func(result json.RawMessage) {
		var sum Summary
		if result == nil || json.Unmarshal(result, &sum) != nil || sum.Brief == "" {
			sum = c.localSummary(sessionID)
		}
		done <- sum
	})
	if dispatchErr != nil {
		c.logger.Debug("summary offload unavailable, computing locally",
			"session", sessionID, "error", dispatchErr)
	}

	select {
	case sum := <-done:
		c.finishSummary(sessionID, fp, sum)
		return sum, nil
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

// finishSummary caches the result, drops the queue entry, and records
// the summary on the session so it persists.
func (c *Coordinator) finishSummary(sessionID string, fp analytics.Fingerprint, sum Summary) {
	cache.Store(c.summaries, sessionID, fp, sum)
	c.queueMu.Lock()
	for i, id := range c.summaryQueue {
		if id == sessionID {
			c.summaryQueue = append(c.summaryQueue[:i], c.summaryQueue[i+1:]...)
			break
		}
	}
	c.queueMu.Unlock()
	now := c.clk.Now().UnixMilli()
	c.engine.Receive(&model.Delta{
		SessionID: sessionID,
		SessionPatch: &model.SessionPatch{
			SummaryBrief:     &sum.Brief,
			SummaryDetailed:  &sum.Detailed,
			SummaryUpdatedAt: &now,
		},
	})

	if c.opts.Client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.opts.Client.SendAction(ctx, reconcile.ActionSummaryUpdate, sessionID); err != nil {
			c.logger.Debug("summary update notify failed", "session", sessionID, "error", err)
		}
	}
}

// localSummary derives a summary from the analytics engine when no
// worker is available.
func (c *Coordinator) localSummary(sessionID string) Summary {
	s, ok := c.engine.State().Sessions[sessionID]
	if !ok {
		return Summary{}
	}
	stats := c.analytics.SessionStats(s)

	brief := stats.Label
	if brief == "" {
		brief = "Browsing"
	}
	if len(stats.TopDomains) > 0 {
		brief = fmt.Sprintf("%s session around %s", brief, stats.TopDomains[0].Domain)
	}

	detailed := fmt.Sprintf("%d pages across %d navigations", len(s.Nodes), s.NavigationCount)
	if stats.DeepestChain.Length >= 2 {
		detailed = fmt.Sprintf("%s, deepest chain %d pages", detailed, stats.DeepestChain.Length)
	}
	if stats.Drift.Label != analytics.DriftUnknown {
		detailed = fmt.Sprintf("%s, intent %s", detailed, stats.Drift.Label)
	}
	return Summary{Brief: brief, Detailed: detailed}
}
