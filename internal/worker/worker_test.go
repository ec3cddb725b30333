package worker

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewPool(4)
	if pool.NumWorkers() != 4 {
		t.Errorf("expected 4 workers, got %d", pool.NumWorkers())
	}

	// Zero should default to CPU count
	pool2 := NewPool(0)
	if pool2.NumWorkers() != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), pool2.NumWorkers())
	}
}

func TestWorkerPoolStartStop(t *testing.T) {
	pool := NewPool(2)
	ctx := context.Background()

	pool.Start(ctx)
	// Double start should be no-op
	pool.Start(ctx)

	pool.Stop()
	// Double stop should be no-op
	pool.Stop()
}

func TestWorkerPoolSubmit(t *testing.T) {
	pool := NewPool(2)
	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop()

	var counter atomic.Int32
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			counter.Add(1)
		})
	}

	go func() {
		for counter.Load() < 10 {
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
		// Success
	case <-time.After(time.Second):
		t.Error("timeout waiting for jobs to complete")
	}

	if counter.Load() != 10 {
		t.Errorf("expected 10 jobs completed, got %d", counter.Load())
	}
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	pool := NewPool(2)
	ctx := context.Background()
	pool.Start(ctx)
	pool.Stop()

	// Submit after stop should return false
	result := pool.Submit(func() {})
	if result {
		t.Error("expected Submit to return false after stop")
	}
}

func TestWorkerPoolDispatch(t *testing.T) {
	pool := NewPool(2)
	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop()

	var counter atomic.Int32

	done, ok := pool.Dispatch(func() {
		counter.Add(1)
	})
	if !ok {
		t.Fatal("expected Dispatch to succeed")
	}

	select {
	case <-done:
		// Success
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for dispatched job")
	}

	if counter.Load() != 1 {
		t.Errorf("expected 1 job completed, got %d", counter.Load())
	}
}

func TestWorkerPoolDispatchBoundedWait(t *testing.T) {
	pool := NewPool(1)
	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop()

	blocker := make(chan struct{})
	var finished atomic.Bool

	done, ok := pool.Dispatch(func() {
		<-blocker
		finished.Store(true)
	})
	if !ok {
		t.Fatal("expected Dispatch to succeed")
	}

	// The wait can be abandoned while the job keeps running
	select {
	case <-done:
		t.Error("job should not be done yet")
	case <-time.After(20 * time.Millisecond):
	}

	close(blocker)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for job after unblocking")
	}

	if !finished.Load() {
		t.Error("expected job to finish after wait was abandoned")
	}
}

func TestWorkerPoolQueueSize(t *testing.T) {
	pool := NewPool(1)
	ctx := context.Background()

	pool.Start(ctx)
	defer pool.Stop()

	// Queue should be empty initially
	if pool.QueueSize() != 0 {
		t.Errorf("expected queue size 0, got %d", pool.QueueSize())
	}
}

func TestWorkerPoolContextCancel(t *testing.T) {
	pool := NewPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	var counter atomic.Int32
	blocker := make(chan struct{})

	// Submit a blocking job
	pool.Submit(func() {
		<-blocker
		counter.Add(1)
	})

	// Cancel context
	cancel()

	// Unblock the job
	close(blocker)

	// Give time for workers to stop
	time.Sleep(50 * time.Millisecond)

	// Submit after context cancel should fail
	result := pool.Submit(func() {
		counter.Add(1)
	})
	if result {
		t.Error("expected Submit to return false after context cancel")
	}

	pool.Stop()
}

func TestWorkerPoolNegativeWorkers(t *testing.T) {
	// Negative workers should default to CPU count
	pool := NewPool(-5)
	if pool.NumWorkers() != runtime.NumCPU() {
		t.Errorf("expected %d workers for negative input, got %d", runtime.NumCPU(), pool.NumWorkers())
	}
}
