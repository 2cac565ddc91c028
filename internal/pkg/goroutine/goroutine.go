// Package goroutine runs fire-and-forget work (security emails, event
// publishing, bookkeeping writes) off the request path with a bounded pool.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// DefaultTaskTimeout bounds every task started with Go.
const DefaultTaskTimeout = 30 * time.Second

// Manager runs functions in goroutines with a concurrency limit.
//
// Tasks outlive the request that scheduled them: they inherit its values
// (correlation id, span) but not its cancellation.
type Manager struct {
	mu   sync.Mutex
	errs []error

	wg      sync.WaitGroup
	sema    chan struct{}
	timeout time.Duration

	stateMu sync.RWMutex
	closed  bool
}

// NewManager creates a Manager that runs at most maxGoroutine tasks at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{
		sema:    make(chan struct{}, maxGoroutine),
		timeout: DefaultTaskTimeout,
	}
}

// Go schedules f. When the pool is full or the manager is closed the task is
// dropped with a warning and Go reports false.
func (g *Manager) Go(pCtx context.Context, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(pCtx, "goroutine manager is closed, skipping new goroutine")
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(pCtx, "maximum goroutine limit reached, dropping task")
		return false
	}

	g.wg.Go(func() {
		defer func() { <-g.sema }()
		defer g.recover(pCtx)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(pCtx), g.timeout)
		defer cancel()

		if err := f(ctx); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	})

	return true
}

func (g *Manager) recover(ctx context.Context) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", paths)
		return
	}
	slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", string(stack))
}

// Wait closes the manager, blocks until running tasks finish and returns
// their joined errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}

// Close lets the manager be registered with the app's closers.
func (g *Manager) Close() error {
	return g.Wait()
}
