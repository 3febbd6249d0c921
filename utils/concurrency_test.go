package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	pool := NewWorkerPool(4)
	var done int64

	for i := 0; i < 50; i++ {
		if err := pool.Submit(context.Background(), func() {
			atomic.AddInt64(&done, 1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Wait()

	if done != 50 {
		t.Errorf("jobs run: got %d, want 50", done)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(3)
	var running, peak int64

	for i := 0; i < 20; i++ {
		_ = pool.Submit(context.Background(), func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 3 {
		t.Errorf("peak concurrency: got %d, want <= 3", peak)
	}
}

func TestWorkerPoolZeroWorkersMeansOne(t *testing.T) {
	pool := NewWorkerPool(0)
	ran := false
	if err := pool.Submit(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	pool.Wait()
	if !ran {
		t.Error("job should run on a single worker")
	}
}

func TestWorkerPoolSubmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool(1)
	ran := false
	err := pool.Submit(ctx, func() { ran = true })
	pool.Wait()

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit error: got %v, want context.Canceled", err)
	}
	if ran {
		t.Error("job must not run after cancellation")
	}
}

func TestWorkerPoolSubmitCancelledWhileWaiting(t *testing.T) {
	pool := NewWorkerPool(1)
	release := make(chan struct{})
	if err := pool.Submit(context.Background(), func() { <-release }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() {})
	close(release)
	pool.Wait()

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit error: got %v, want context.DeadlineExceeded", err)
	}
}
