package txcore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TaskRunner bounds the concurrency of a resource manager's own internal
// fan-out (e.g. mirroring a marker write to secondary regions). engine and
// dispatch never use it: callback order there is semantically required, so
// those packages walk a plain for loop instead.
type TaskRunner struct {
	eg  *errgroup.Group
	ctx context.Context
}

// NewTaskRunner returns a TaskRunner whose concurrent task count is capped
// at maxConcurrent; maxConcurrent <= 0 means unbounded.
func NewTaskRunner(ctx context.Context, maxConcurrent int) *TaskRunner {
	eg, taskCtx := errgroup.WithContext(ctx)
	if maxConcurrent > 0 {
		eg.SetLimit(maxConcurrent)
	}
	return &TaskRunner{eg: eg, ctx: taskCtx}
}

// Go submits task, handing it the runner's own context (canceled as soon as
// any submitted task returns a non-nil error) so call sites don't need to
// fetch it separately before spawning.
func (tr *TaskRunner) Go(task func(ctx context.Context) error) {
	tr.eg.Go(func() error {
		return task(tr.ctx)
	})
}

// Wait blocks until every submitted task has returned, yielding the first
// non-nil error, if any.
func (tr *TaskRunner) Wait() error {
	return tr.eg.Wait()
}
