package utils

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work submitted to RunBounded
type Task[R any] func(ctx context.Context) (R, error)

// TaskResult holds either the value or the error of a task
type TaskResult[R any] struct {
	Value R
	Err   error
}

// RunBounded executes tasks with at most concurrency tasks in flight.
// Workers share a single cursor and claim the next index atomically, so every task
// runs exactly once. results[i] always belongs to tasks[i]. A failing task only fills
// its own slot; siblings keep running.
func RunBounded[R any](ctx context.Context, tasks []Task[R], concurrency int) []TaskResult[R] {
	results := make([]TaskResult[R], len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	var next atomic.Int64
	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= len(tasks) {
					return nil
				}
				results[i] = runTask(ctx, tasks[i])
			}
		})
	}
	// workers never return errors; failures live in the result slots
	_ = g.Wait()

	return results
}

func runTask[R any](ctx context.Context, task Task[R]) (res TaskResult[R]) {
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	res.Value, res.Err = task(ctx)
	return res
}

// FirstError returns the lowest-index error, or nil
func FirstError[R any](results []TaskResult[R]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
