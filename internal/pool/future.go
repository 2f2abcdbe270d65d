package pool

import (
	"context"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/packing"
)

// Future is the handle a caller receives from Submit. It resolves once the
// task reaches a terminal status.
type Future struct {
	done   chan struct{}
	result packing.Result
	err    *errs.Error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(result packing.Result, err *errs.Error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the task completes or ctx is cancelled first.
func (f *Future) Wait(ctx context.Context) (packing.Result, *errs.Error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return packing.Result{}, errs.Wrap(errs.Timeout, "future wait cancelled", ctx.Err())
	}
}
