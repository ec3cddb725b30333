// Package worker provides a goroutine pool for concurrent job execution.
//
// The Pool manages a fixed number of worker goroutines that process jobs
// from a shared queue. It supports graceful shutdown and context cancellation.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	pool.Submit(func() {
//	    // do work
//	})
//
// # Bounded Waits
//
// Dispatch returns a channel that closes when the job completes, so callers
// can wait with a deadline while the job itself keeps running:
//
//	done, ok := pool.Dispatch(job)
//	if ok {
//	    select {
//	    case <-done:
//	    case <-time.After(10 * time.Second):
//	    }
//	}
//
// # Graceful Shutdown
//
// Stop() waits for all in-flight jobs to complete before returning.
// The context passed to Start() can be used to cancel waiting jobs.
package worker
