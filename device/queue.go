// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package device provides the execution queue abstraction: shared buffers
// visible to both the control goroutine and every work item, a persistent
// worker pool that runs submitted work grids, and completion tokens that
// join them.
//
// Two memory backends exist. The unified backend maps buffers as anonymous
// shared memory; the arena backend carves them from a host-only arena and
// passes explicit synchronization points around each dispatch. Under either
// backend, Data returns the same slice the workers read and write.
//
//	q, err := device.NewQueue()
//	if err != nil {
//	    return err
//	}
//	defer q.Close()
//
//	buf, err := q.Allocate(m * n)
//	...
//	ev, err := q.Submit(m*n, func(start, end int) { ... })
//	...
//	if err := ev.Wait(); err != nil {
//	    return err
//	}
//	q.Release(buf)
package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ajroetker/usmgemm/internal/workerpool"
	"github.com/rs/zerolog"
)

// Queue is an execution queue bound to one Device. It allocates and frees
// shared buffers and runs submitted work on a persistent worker pool.
type Queue struct {
	dev       Device
	mem       allocator
	pool      *workerpool.Pool
	schedule  Schedule
	batchSize int
	log       zerolog.Logger

	// mu orders Submit and Allocate against Close.
	mu     sync.RWMutex
	closed bool

	faulted atomic.Bool
	nextID  atomic.Uint64

	// liveMu guards live and pending.
	liveMu  sync.Mutex
	live    map[uint64]*Buffer
	pending map[*Event]struct{}

	allocs   atomic.Int64
	releases atomic.Int64
}

// NewQueue creates a queue on the selected backend.
func NewQueue(opts ...Option) (*Queue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := Lookup(o.kind)
	if err != nil {
		return nil, err
	}
	mem, err := newAllocator(dev.Kind, o.arenaCapacity)
	if err != nil {
		return nil, err
	}

	q := &Queue{
		dev:       dev,
		mem:       mem,
		pool:      workerpool.New(o.workers),
		schedule:  o.schedule,
		batchSize: o.batchSize,
		log:       o.logger.With().Str("backend", dev.Kind.String()).Logger(),
		live:      make(map[uint64]*Buffer),
		pending:   make(map[*Event]struct{}),
	}
	q.log.Debug().
		Str("device", dev.Name).
		Int("workers", q.pool.NumWorkers()).
		Stringer("schedule", q.schedule).
		Msg("queue created")
	return q, nil
}

// Device returns the device the queue is bound to.
func (q *Queue) Device() Device { return q.dev }

// Workers returns the size of the worker pool.
func (q *Queue) Workers() int { return q.pool.NumWorkers() }

// Schedule returns the work partitioning strategy.
func (q *Queue) Schedule() Schedule { return q.schedule }

// Faulted reports whether a work item has faulted on this queue. A faulted
// queue rejects further submissions.
func (q *Queue) Faulted() bool { return q.faulted.Load() }

// Live returns the number of buffers allocated and not yet released.
func (q *Queue) Live() int {
	q.liveMu.Lock()
	defer q.liveMu.Unlock()
	return len(q.live)
}

// Allocations returns the number of successful Allocate calls.
func (q *Queue) Allocations() int64 { return q.allocs.Load() }

// Releases returns the number of successful Release calls.
func (q *Queue) Releases() int64 { return q.releases.Load() }

// InUse returns the bytes held by live buffers, rounded to cache lines.
func (q *Queue) InUse() int64 { return q.mem.inUse() }

// Arena returns the host arena backing the queue, or nil on the unified
// backend.
func (q *Queue) Arena() *Arena {
	a, _ := q.mem.(*Arena)
	return a
}

// Allocate returns a buffer of exactly count float32 slots, zero filled,
// readable and writable from the calling goroutine and from any work item
// submitted to q. It fails with *AllocationError when the backend cannot
// satisfy the request; callers treat that as fatal.
func (q *Queue) Allocate(count int) (*Buffer, error) {
	if count <= 0 {
		return nil, &InvalidDimensionError{Op: "allocate", Name: "count", Value: count}
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, &AllocationError{Backend: q.dev.Kind, Count: count, Err: ErrQueueClosed}
	}

	r, err := q.mem.alloc(count)
	if err != nil {
		q.log.Error().Err(err).Int("count", count).Msg("allocation failed")
		return nil, &AllocationError{Backend: q.dev.Kind, Count: count, Err: err}
	}

	b := &Buffer{queue: q, id: q.nextID.Add(1), region: r}
	q.liveMu.Lock()
	q.live[b.id] = b
	q.liveMu.Unlock()
	q.allocs.Add(1)

	q.log.Debug().Uint64("buffer", b.id).Int("count", count).Msg("allocated")
	return b, nil
}

// Release frees the storage behind b. It must be called exactly once per
// buffer, after every dispatch touching the buffer has been waited on.
// Releasing twice returns ErrDoubleRelease and leaves memory untouched.
func (q *Queue) Release(b *Buffer) error {
	if b == nil || b.queue != q {
		return ErrForeignBuffer
	}
	if !b.released.CompareAndSwap(false, true) {
		return ErrDoubleRelease
	}

	q.liveMu.Lock()
	delete(q.live, b.id)
	q.liveMu.Unlock()

	if err := q.mem.free(b.region); err != nil {
		return fmt.Errorf("release buffer %d: %w", b.id, err)
	}
	q.releases.Add(1)
	q.log.Debug().Uint64("buffer", b.id).Msg("released")
	return nil
}

// Check reports whether b can be used with q: it must have been allocated
// by q and not released yet.
func (q *Queue) Check(b *Buffer) error {
	if b == nil || b.queue != q {
		return ErrForeignBuffer
	}
	if b.Released() {
		return ErrReleased
	}
	return nil
}

// Submit schedules n work items and returns without waiting for them. fn is
// called with disjoint ranges [start, end) whose union is [0, n); each index
// is passed to exactly one call. The returned Event is the only way to
// observe completion.
//
// Submit fails with *ExecutionError when the queue is closed or faulted.
func (q *Queue) Submit(n int, fn func(start, end int)) (*Event, error) {
	if n <= 0 {
		return nil, &InvalidDimensionError{Op: "dispatch", Name: "items", Value: n}
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, &ExecutionError{Op: "dispatch", Err: ErrQueueClosed}
	}
	if q.faulted.Load() {
		return nil, &ExecutionError{Op: "dispatch", Err: ErrQueueFaulted}
	}

	q.mem.publish()
	var barrier *workerpool.Barrier
	switch q.schedule {
	case ScheduleDynamic:
		barrier = q.pool.LaunchBatched(n, q.batchSize, fn)
	default:
		barrier = q.pool.Launch(n, fn)
	}

	ev := &Event{queue: q, barrier: barrier, n: n}
	q.liveMu.Lock()
	q.pending[ev] = struct{}{}
	q.liveMu.Unlock()

	q.log.Debug().Int("items", n).Msg("submitted")
	return ev, nil
}

// Close stops the worker pool. Events not yet waited on are joined first, so
// no work item is still running when leaked buffers are released. Unwaited
// events and live buffers are reported as an error; the queue rejects all
// further work. Close is idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.pool.Close()
	q.mu.Unlock()

	var errs []error

	q.liveMu.Lock()
	unwaited := make([]*Event, 0, len(q.pending))
	for ev := range q.pending {
		unwaited = append(unwaited, ev)
	}
	q.liveMu.Unlock()
	for _, ev := range unwaited {
		if err := ev.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(unwaited) > 0 {
		q.log.Warn().Int("events", len(unwaited)).Msg("queue closed with events not waited on")
		errs = append(errs, fmt.Errorf("device: %d events not waited on before Close", len(unwaited)))
	}

	q.liveMu.Lock()
	leaked := make([]*Buffer, 0, len(q.live))
	for _, b := range q.live {
		leaked = append(leaked, b)
	}
	q.liveMu.Unlock()
	for _, b := range leaked {
		if err := q.Release(b); err != nil {
			q.log.Error().Err(err).Uint64("buffer", b.id).Msg("release on close")
		}
	}
	if len(leaked) > 0 {
		q.log.Warn().Int("buffers", len(leaked)).Msg("queue closed with live buffers")
		errs = append(errs, fmt.Errorf("device: %d buffers not released before Close", len(leaked)))
	}

	if len(errs) == 0 {
		q.log.Debug().Msg("queue closed")
	}
	return errors.Join(errs...)
}
