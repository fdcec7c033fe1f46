// Package runtime supervises a fixed set of long-running background
// loops (the service's GPU-sampling, CPU-sampling, and trace-flush
// loops) as a single start/stop unit: Start launches each registered
// task in its own goroutine sharing one cancelable context, and Stop
// cancels that context and waits for every task to return before
// returning itself.
//
// It generalizes two patterns already used separately in this tree: the
// idempotent Start(ctx)/Stop() lifecycle of a top-level engine, and the
// sync.WaitGroup-plus-done-channel bookkeeping a single background loop
// uses to shut down cleanly (see engine/resources.Manager.sweepLoop).
// Here both are lifted to cover N loops instead of one.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a supervised background loop. It must return when ctx is
// canceled; any other return is treated as the task exiting early.
type Task func(ctx context.Context) error

// Group runs a fixed set of named tasks under one shared context.
type Group struct {
	log *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	errsMu sync.Mutex
	errs   map[string]error
}

// NewGroup constructs an empty, unstarted Group.
func NewGroup(logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{log: logger, errs: make(map[string]error)}
}

// Start launches every named task in its own goroutine, deriving each
// task's context from ctx. Start is a no-op if the group was already
// started. Tasks that return a non-nil error before the group's context
// is canceled are logged and recorded; errors returned after
// cancellation are ignored. A failing task does not stop its siblings.
func (g *Group) Start(ctx context.Context, tasks map[string]Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.started = true

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	for name, task := range tasks {
		name, task := name, task
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := task(runCtx); err != nil && runCtx.Err() == nil {
				g.log.Error("runtime: task exited with error", "task", name, "error", err)
				g.errsMu.Lock()
				g.errs[name] = err
				g.errsMu.Unlock()
			}
		}()
	}
}

// Stop cancels the shared context and waits for every task to return.
// Stop is idempotent: calling it again after the group has already
// stopped (or was never started) is a no-op.
func (g *Group) Stop() error {
	g.mu.Lock()
	if !g.started || g.stopped {
		g.mu.Unlock()
		return nil
	}
	g.stopped = true
	cancel := g.cancel
	g.mu.Unlock()

	cancel()
	g.wg.Wait()

	g.errsMu.Lock()
	defer g.errsMu.Unlock()
	if len(g.errs) == 0 {
		return nil
	}
	return fmt.Errorf("runtime: %d task(s) exited with errors: %w", len(g.errs), firstError(g.errs))
}

func firstError(errs map[string]error) error {
	for _, err := range errs {
		return err
	}
	return nil
}
