package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// State of the load orchestrator.
type State string

// Orchestrator states.
const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
)

// Loader performs asynchronous media loads. Load must not block; the
// outcome is delivered back to the owning run loop as a LoadResult.
type Loader interface {
	Load(ctx context.Context, req LoadRequest)
}

// LoadRequest identifies one dispatched load.
type LoadRequest struct {
	Path       string
	Kind       Kind
	Generation uint64
}

// LoadResult is the outcome of one dispatched load.
type LoadResult struct {
	Path       string
	Generation uint64
	Payload    any
	Err        error
}

// gesture is the live origin of an in-flight load: either a direct
// open (no retries) or a navigation with its skip-retry bookkeeping.
type gesture struct {
	direct     bool
	direction  Direction
	imagesOnly bool
	attempts   int
	skipped    *SkipAggregator
	target     string
	generation uint64
}

// Orchestrator turns navigation gestures into asynchronous loads and
// keeps the cursor pessimistic: it only ever moves after a load has
// succeeded, so the UI can never point at media that failed to load.
// A single corrupted file is retried past, bounded by maxSkips, and
// the skipped names surface as one grouped warning per gesture.
//
// All methods must be called from the single goroutine that owns the
// browser state.
type Orchestrator struct {
	log     *zap.Logger
	cursor  *Cursor
	loader  Loader
	notify  Notifier
	maxSkip int
	dismiss time.Duration

	state      State
	pending    *gesture
	generation uint64
}

// NewOrchestrator creates an idle orchestrator over cursor.
func NewOrchestrator(log *zap.Logger, cursor *Cursor, loader Loader, notify Notifier, maxSkip int, dismiss time.Duration) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if maxSkip < 1 {
		maxSkip = 1
	}
	return &Orchestrator{
		log:     log,
		cursor:  cursor,
		loader:  loader,
		notify:  notify,
		maxSkip: maxSkip,
		dismiss: dismiss,
		state:   StateIdle,
	}
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	return o.state
}

// Cursor returns the cursor the orchestrator drives.
func (o *Orchestrator) Cursor() *Cursor {
	return o.cursor
}

// Navigate starts a gesture in the given direction. It returns the
// tentative target and whether a load was dispatched; an empty index
// is a no-op. A gesture arriving while another is in flight supersedes
// it: the generation is bumped and the stale result will be discarded.
func (o *Orchestrator) Navigate(ctx context.Context, dir Direction, imagesOnly bool) (string, bool) {
	entry, ok := o.peek(1, dir, imagesOnly)
	if !ok {
		return "", false
	}
	o.generation++
	o.pending = &gesture{
		direction:  dir,
		imagesOnly: imagesOnly,
		skipped:    NewSkipAggregator(o.dismiss),
		target:     entry.Path,
		generation: o.generation,
	}
	o.state = StateLoading
	o.dispatch(ctx, entry)
	return entry.Path, true
}

// Open starts a direct-open load of path. Direct opens carry no retry
// semantics: a failure surfaces immediately.
func (o *Orchestrator) Open(ctx context.Context, path string, kind Kind) {
	o.generation++
	o.pending = &gesture{
		direct:     true,
		skipped:    NewSkipAggregator(o.dismiss),
		target:     path,
		generation: o.generation,
	}
	o.state = StateLoading
	o.dispatch(ctx, Entry{Path: path, Kind: kind})
}

// HandleResult consumes one load outcome. It reports whether the
// cursor was confirmed onto a new entry. Results from a superseded
// gesture, or arriving after shutdown, are dropped without touching
// any navigation state.
func (o *Orchestrator) HandleResult(ctx context.Context, res LoadResult) bool {
	if ctx.Err() != nil {
		return false
	}
	g := o.pending
	if g == nil || res.Generation != g.generation || res.Path != g.target {
		o.log.Debug("discarding stale load result",
			zap.String("path", res.Path),
			zap.Uint64("generation", res.Generation))
		return false
	}

	if res.Err == nil {
		o.cursor.Confirm(g.target)
		g.skipped.Flush(o.notify)
		o.finish()
		return true
	}

	if g.direct {
		o.notify.Emit(Notification{
			Level:   LevelError,
			Message: fmt.Sprintf("cannot open %s: %v", filepath.Base(g.target), res.Err),
			Dismiss: o.dismiss,
		})
		o.finish()
		return false
	}

	// Skip-retry: remember the failure and try the next candidate in
	// the same direction, leaving the displayed media untouched.
	g.skipped.Add(res.Path)
	g.attempts++
	o.log.Debug("load failed, skipping",
		zap.String("path", res.Path),
		zap.Int("attempts", g.attempts),
		zap.Error(res.Err))

	if g.attempts <= o.maxSkip {
		if entry, ok := o.peek(g.attempts+1, g.direction, g.imagesOnly); ok {
			g.target = entry.Path
			o.dispatch(ctx, entry)
			return false
		}
	}

	// Exhausted: one grouped warning, cursor stays where it was.
	g.skipped.Flush(o.notify)
	o.finish()
	return false
}

func (o *Orchestrator) peek(n int, dir Direction, imagesOnly bool) (Entry, bool) {
	if imagesOnly {
		return o.cursor.PeekImageAt(n, dir)
	}
	return o.cursor.PeekAt(n, dir)
}

func (o *Orchestrator) dispatch(ctx context.Context, entry Entry) {
	o.loader.Load(ctx, LoadRequest{
		Path:       entry.Path,
		Kind:       entry.Kind,
		Generation: o.generation,
	})
}

func (o *Orchestrator) finish() {
	o.pending = nil
	o.state = StateIdle
}
