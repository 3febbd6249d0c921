package utils

import (
	"context"
	"sync"
)

// WorkerPool runs jobs on at most maxWorkers goroutines.
type WorkerPool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool. Values below one mean one worker.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{slots: make(chan struct{}, maxWorkers)}
}

// Submit blocks until a worker is free and starts job on it. If ctx ends
// first, job is not run and ctx's error is returned.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()
		job()
	}()
	return nil
}

// Wait blocks until all started jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
