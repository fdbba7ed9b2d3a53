package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds the number of concurrently running processing jobs.
// Per spec.md §9's "cooperative runtime ⇒ single pool with cancellation"
// resolution, the same pool both accepts newly triggered jobs and awaits
// their FFmpeg subprocess: a goroutine blocked in cmd.Wait() under a
// context.WithTimeout does not occupy an OS thread exclusively, so there is
// no thread-per-task deadlock risk from sharing one pool.
//
// Individual job failures are handled entirely inside the submitted
// function (mark FAILED, log) and never returned to the group, so one job's
// error never cancels its siblings; only pool shutdown does.
type WorkerPool struct {
	group *errgroup.Group
	ctx   context.Context
}

// NewWorkerPool creates a pool bounded to size concurrent jobs. ctx is the
// parent of the context every job receives; cancelling it cancels that
// context for running and later jobs, but Submit still schedules them.
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(size)
	return &WorkerPool{group: group, ctx: groupCtx}
}

// Submit schedules fn to run on the pool, blocking the caller until a slot
// is available; the pool's context does not cut that wait short. fn is
// responsible for its own error handling; Submit never surfaces fn's outcome.
func (p *WorkerPool) Submit(fn func(ctx context.Context)) {
	p.group.Go(func() error {
		fn(p.ctx)
		return nil
	})
}

// Wait blocks until every submitted job has returned. Used during graceful
// shutdown.
func (p *WorkerPool) Wait() error {
	return p.group.Wait()
}
