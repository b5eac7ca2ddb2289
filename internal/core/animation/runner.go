package animation

import (
	"context"
	"errors"
	"time"
)

// ErrRunnerStopped is returned by Do once the runner loop has exited.
var ErrRunnerStopped = errors.New("animation runner stopped")

// Runner owns an Engine on one goroutine. It renders a frame every interval
// and executes calls submitted with Do between frames, so the engine never
// sees concurrent access.
type Runner struct {
	engine   *Engine
	interval time.Duration
	ops      chan op
	stopped  chan struct{}
}

type op struct {
	fn   func(*Engine)
	done chan struct{}
}

// NewRunner creates a Runner. interval is the frame period; 16ms matches a
// 60 Hz display.
func NewRunner(engine *Engine, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Runner{
		engine:   engine,
		interval: interval,
		ops:      make(chan op),
		stopped:  make(chan struct{}),
	}
}

// Run renders frames until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.engine.Frame(r.engine.Now())
		case o := <-r.ops:
			o.fn(r.engine)
			close(o.done)
		}
	}
}

// Do runs fn on the runner goroutine and waits for it to return. Callbacks
// already running on the runner (leg completions, timers) must use the
// engine they close over instead of calling Do, or they will deadlock.
func (r *Runner) Do(ctx context.Context, fn func(*Engine)) error {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case r.ops <- o:
	case <-r.stopped:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-o.done:
		return nil
	case <-r.stopped:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
