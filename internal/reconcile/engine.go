package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runnerr0/meander/internal/clock"
	"github.com/runnerr0/meander/internal/model"
)

// Action names accepted by the capture daemon.
const (
	ActionSessionDelete         = "session_delete"
	ActionSessionRestore        = "session_restore"
	ActionSessionDeleteAll      = "session_delete_all"
	ActionSessionFavoriteToggle = "session_favorite_toggle"
	ActionResetState            = "reset_state"
	ActionSummaryUpdate         = "summary_update"
)

const (
	defaultBatchWindow    = 300 * time.Millisecond
	defaultReconcileDelay = time.Second
)

// Actions sends user-initiated mutations to the capture daemon.
type Actions interface {
	SendAction(ctx context.Context, action, sessionID string) error
}

// Snapshots fetches the daemon's authoritative full state.
type Snapshots interface {
	FetchState(ctx context.Context) (*model.State, error)
}

// Options configure an Engine. Zero values pick the defaults.
type Options struct {
	Clock clock.Clock

	// Batching holds incoming deltas for BatchWindow and applies them as
	// one merged delta. When false every delta applies immediately.
	Batching    bool
	BatchWindow time.Duration

	// ReconcileDelay is the debounce before pulling an authoritative
	// snapshot after an optimistic edit.
	ReconcileDelay time.Duration

	Actions   Actions
	Snapshots Snapshots
	Logger    *slog.Logger

	// OnChange is invoked with the live state after every applied change.
	// It runs under the engine lock and must not call back into the
	// engine.
	OnChange func(*model.State)
}

// Engine owns the live State. Deltas arrive through Receive, user edits
// apply optimistically and are confirmed by a debounced authoritative
// pull, and stale pull responses are rejected by sequence number.
type Engine struct {
	mu    sync.Mutex
	state *model.State
	opts  Options

	pending        *model.Delta
	batchTimer     clock.Timer
	reconcileTimer clock.Timer
	pullSeq        uint64
}

// NewEngine builds an engine around an initial state. A nil initial
// state starts empty.
func NewEngine(initial *model.State, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.BatchWindow <= 0 {
		opts.BatchWindow = defaultBatchWindow
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = defaultReconcileDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if initial == nil {
		initial = &model.State{}
	}
	return &Engine{
		state: model.ApplyStateDefaults(initial),
		opts:  opts,
	}
}

// State returns the live state. Callers must treat it as read-only and
// not hold the pointer across engine mutations.
func (e *Engine) State() *model.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Receive ingests one delta. Under batching it merges into the pending
// batch and arms the window timer; a full-state delta flushes the batch
// and applies at once so resynchronizations are never delayed.
func (e *Engine) Receive(d *model.Delta) {
	if d == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.opts.Batching || d.State != nil {
		e.flushLocked()
		e.applyLocked(d)
		return
	}
	if e.pending != nil && e.pending.SessionID != "" &&
		d.SessionID != "" && d.SessionID != e.pending.SessionID {
		// Session-scoped patches never straddle sessions in one batch.
		e.flushLocked()
	}
	if e.pending == nil {
		e.pending = &model.Delta{}
	}
	Merge(e.pending, d)
	if e.batchTimer == nil {
		e.batchTimer = e.opts.Clock.AfterFunc(e.opts.BatchWindow, e.onBatchWindow)
	}
}

// Flush applies any pending batch immediately.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
}

func (e *Engine) onBatchWindow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchTimer = nil
	e.flushLocked()
}

func (e *Engine) flushLocked() {
	if e.batchTimer != nil {
		e.batchTimer.Stop()
		e.batchTimer = nil
	}
	if e.pending == nil {
		return
	}
	d := e.pending
	e.pending = nil
	e.applyLocked(d)
}

func (e *Engine) applyLocked(d *model.Delta) {
	st, changed := Apply(e.state, d)
	e.state = st
	if changed && e.opts.OnChange != nil {
		e.opts.OnChange(e.state)
	}
}

// ToggleFavorite flips a session's favorite flag locally, notifies the
// daemon, and schedules a reconciliation pull.
func (e *Engine) ToggleFavorite(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	s, ok := e.state.Sessions[sessionID]
	if ok {
		s.Favorite = !s.Favorite
		if s.Favorite {
			s.FavoriteAt = e.opts.Clock.Now().UnixMilli()
		} else {
			s.FavoriteAt = 0
		}
		e.notifyLocked()
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("toggle favorite: unknown session %q", sessionID)
	}
	return e.sendAction(ctx, ActionSessionFavoriteToggle, sessionID)
}

// DeleteSession marks a session deleted locally. If it was the active
// session, the active pointer falls back to the newest surviving one.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	s, ok := e.state.Sessions[sessionID]
	if ok {
		s.Deleted = true
		s.DeletedAt = e.opts.Clock.Now().UnixMilli()
		if e.state.ActiveSessionID == sessionID {
			e.state.ActiveSessionID = ""
		}
		model.ApplyStateDefaults(e.state)
		e.notifyLocked()
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("delete session: unknown session %q", sessionID)
	}
	return e.sendAction(ctx, ActionSessionDelete, sessionID)
}

// RestoreSession clears a session's deleted flag locally.
func (e *Engine) RestoreSession(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	s, ok := e.state.Sessions[sessionID]
	if ok {
		s.Deleted = false
		s.DeletedAt = 0
		model.ApplyStateDefaults(e.state)
		e.notifyLocked()
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("restore session: unknown session %q", sessionID)
	}
	return e.sendAction(ctx, ActionSessionRestore, sessionID)
}

// DeleteAllSessions marks every session deleted locally.
func (e *Engine) DeleteAllSessions(ctx context.Context) error {
	e.mu.Lock()
	now := e.opts.Clock.Now().UnixMilli()
	for _, s := range e.state.Sessions {
		if !s.Deleted {
			s.Deleted = true
			s.DeletedAt = now
		}
	}
	e.state.ActiveSessionID = ""
	e.notifyLocked()
	e.mu.Unlock()
	return e.sendAction(ctx, ActionSessionDeleteAll, "")
}

// Reset discards the entire state and asks the daemon to do the same.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.pending = nil
	if e.batchTimer != nil {
		e.batchTimer.Stop()
		e.batchTimer = nil
	}
	e.state = model.ApplyStateDefaults(&model.State{})
	e.notifyLocked()
	e.mu.Unlock()
	return e.sendAction(ctx, ActionResetState, "")
}

// Refresh pulls an authoritative snapshot immediately, bypassing the
// debounce.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.reconcileTimer != nil {
		e.reconcileTimer.Stop()
		e.reconcileTimer = nil
	}
	e.pullSeq++
	seq := e.pullSeq
	e.mu.Unlock()
	return e.pull(ctx, seq)
}

func (e *Engine) notifyLocked() {
	if e.opts.OnChange != nil {
		e.opts.OnChange(e.state)
	}
}

// sendAction pushes the edit to the daemon and debounces a
// reconciliation pull. A failed send is not retried; the pull fetches
// the authoritative state instead.
func (e *Engine) sendAction(ctx context.Context, action, sessionID string) error {
	if e.opts.Actions == nil {
		return nil
	}
	err := e.opts.Actions.SendAction(ctx, action, sessionID)
	if err != nil {
		e.opts.Logger.Warn("action send failed, will pull snapshot",
			"action", action, "session", sessionID, "error", err)
	}
	e.scheduleReconcile()
	if err != nil {
		return fmt.Errorf("send action %s: %w", action, err)
	}
	return nil
}

func (e *Engine) scheduleReconcile() {
	if e.opts.Snapshots == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reconcileTimer != nil {
		e.reconcileTimer.Stop()
	}
	e.reconcileTimer = e.opts.Clock.AfterFunc(e.opts.ReconcileDelay, e.onReconcile)
}

func (e *Engine) onReconcile() {
	e.mu.Lock()
	e.reconcileTimer = nil
	e.pullSeq++
	seq := e.pullSeq
	e.mu.Unlock()
	if err := e.pull(context.Background(), seq); err != nil {
		e.opts.Logger.Warn("reconciliation pull failed", "error", err)
	}
}

// pull fetches the authoritative state and installs it unless a newer
// pull has been issued in the meantime. The authoritative state wins
// over any batch still pending locally.
func (e *Engine) pull(ctx context.Context, seq uint64) error {
	if e.opts.Snapshots == nil {
		return nil
	}
	st, err := e.opts.Snapshots.FetchState(ctx)
	if err != nil {
		return fmt.Errorf("fetch state: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.pullSeq {
		return nil
	}
	e.pending = nil
	if e.batchTimer != nil {
		e.batchTimer.Stop()
		e.batchTimer = nil
	}
	e.state = model.ApplyStateDefaults(st)
	e.notifyLocked()
	return nil
}
