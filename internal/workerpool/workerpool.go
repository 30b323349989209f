// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable worker pool for parallel
// computation. A Pool is created once per execution queue and reused across
// every dispatch submitted to it, so no goroutines are spawned per launch.
//
// Every launch returns immediately with a Barrier that acts as the join
// point:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	barrier := pool.Launch(m*n, func(start, end int) {
//	    computeItems(start, end)
//	})
//	if err := barrier.Wait(); err != nil {
//	    // a task panicked
//	}
package workerpool

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *Barrier
}

// Fault is returned by Barrier.Wait when a task panicked.
type Fault struct {
	Value any
	Stack []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("workerpool: task panicked: %v", f.Value)
}

// Barrier is the join handle for one launch. Wait blocks until every task of
// the launch has returned.
type Barrier struct {
	wg    sync.WaitGroup
	fault atomic.Pointer[Fault]
	items atomic.Int64
}

// run executes fn and marks one task done, recording the first panic.
func (b *Barrier) run(fn func()) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.fault.CompareAndSwap(nil, &Fault{Value: r, Stack: debug.Stack()})
		}
	}()
	fn()
}

// Wait blocks until all tasks of the launch complete. It returns a *Fault if
// any task panicked. Wait may be called any number of times.
func (b *Barrier) Wait() error {
	b.wg.Wait()
	if f := b.fault.Load(); f != nil {
		return f
	}
	return nil
}

// Items returns the number of indices whose range callback returned
// normally. Only meaningful after Wait.
func (b *Barrier) Items() int64 {
	return b.items.Load()
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.barrier.run(item.fn)
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Launch schedules fn over [0, n) split into one contiguous range per worker
// and returns without waiting. fn receives (start, end) and must process
// [start, end). The ranges are disjoint and cover [0, n) exactly once.
//
// On a closed pool, or when a single worker would be used, fn runs inline on
// the calling goroutine and the returned Barrier is already complete.
func (p *Pool) Launch(n int, fn func(start, end int)) *Barrier {
	b := &Barrier{}
	if n <= 0 {
		return b
	}

	workers := min(p.numWorkers, n)
	if p.closed.Load() || workers == 1 {
		b.wg.Add(1)
		b.run(func() {
			fn(0, n)
			b.items.Add(int64(n))
		})
		return b
	}

	// Calculate chunk size (ensure all items are covered)
	chunkSize := (n + workers - 1) / workers

	b.wg.Add(workers)
	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			// No work for this worker
			b.wg.Done()
			continue
		}

		p.workC <- workItem{
			fn: func() {
				fn(start, end)
				b.items.Add(int64(end - start))
			},
			barrier: b,
		}
	}

	return b
}

// LaunchBatched schedules fn over [0, n) using atomic work stealing: each
// worker repeatedly grabs the next batch of batchSize indices until none are
// left. It returns without waiting. Batches are disjoint and cover [0, n)
// exactly once.
func (p *Pool) LaunchBatched(n int, batchSize int, fn func(start, end int)) *Barrier {
	b := &Barrier{}
	if n <= 0 {
		return b
	}

	if batchSize <= 0 {
		batchSize = 1
	}

	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)

	if p.closed.Load() || workers == 1 {
		b.wg.Add(1)
		b.run(func() {
			fn(0, n)
			b.items.Add(int64(n))
		})
		return b
	}

	var nextBatch atomic.Int64
	b.wg.Add(workers)

	for range workers {
		p.workC <- workItem{
			fn: func() {
				for {
					batch := int(nextBatch.Add(1)) - 1
					start := batch * batchSize
					if start >= n {
						return
					}
					end := min(start+batchSize, n)
					fn(start, end)
					b.items.Add(int64(end - start))
				}
			},
			barrier: b,
		}
	}

	return b
}
