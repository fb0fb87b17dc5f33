// Package waiter runs long-lived functions until one fails or a signal arrives.
package waiter

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

type WaitFunc func(ctx context.Context) error

type Waiter interface {
	Add(fns ...WaitFunc)
	Wait() error
	Context() context.Context
	CancelFunc() context.CancelFunc
}

type waiterCfg struct {
	signals []os.Signal
}

type waiter struct {
	ctx      context.Context
	cancelFn context.CancelFunc
	fns      []WaitFunc
}

// NewWaiter derives its context from ctx; cancelFn is called once Wait returns.
// SIGINT and SIGTERM cancel the context unless WithSignals says otherwise.
func NewWaiter(ctx context.Context, cancelFn context.CancelFunc, opts ...Option) Waiter {
	cfg := &waiterCfg{
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	w := &waiter{
		ctx:      ctx,
		cancelFn: cancelFn,
	}
	if len(cfg.signals) > 0 {
		sigCtx, stop := signal.NotifyContext(ctx, cfg.signals...)
		w.ctx = sigCtx
		w.cancelFn = func() {
			stop()
			cancelFn()
		}
	}
	return w
}

func (w *waiter) Add(fns ...WaitFunc) {
	w.fns = append(w.fns, fns...)
}

// Wait blocks until every function returned and reports the first error.
func (w *waiter) Wait() error {
	defer w.cancelFn()

	group, gCtx := errgroup.WithContext(w.ctx)
	for _, fn := range w.fns {
		fn := fn
		group.Go(func() error {
			return fn(gCtx)
		})
	}
	return group.Wait()
}

func (w *waiter) Context() context.Context {
	return w.ctx
}

func (w *waiter) CancelFunc() context.CancelFunc {
	return w.cancelFn
}
