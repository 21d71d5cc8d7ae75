package tracker

import (
	"context"

	"go.uber.org/zap"
)

// Loop is the single-threaded cooperative domain the tracker lives in. The
// state machine, the history store and the common save state are only ever
// touched from the loop goroutine; other goroutines hand work in through
// Invoke. A task posted by a running task executes after the current one
// finishes, which gives "defer to the next tick" semantics.
type Loop struct {
	logger *zap.Logger
	tasks  chan func()
}

// NewLoop creates an idle loop. Run must be called for tasks to execute.
func NewLoop(logger *zap.Logger) *Loop {
	return &Loop{
		logger: logger.Named("loop"),
		tasks:  make(chan func(), 1024),
	}
}

// Invoke posts fn to run on the loop goroutine. Safe from any goroutine,
// including the loop itself.
func (l *Loop) Invoke(fn func()) {
	l.tasks <- fn
}

// Run executes posted tasks until the context is cancelled. It blocks the
// calling goroutine, which becomes the loop goroutine.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("Tracker loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Tracker loop stopped")
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}
