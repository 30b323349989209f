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

package gemm

import (
	"errors"
	"fmt"

	"github.com/ajroetker/usmgemm/device"
	"github.com/rs/zerolog"
)

// Error kinds surfaced by the engine.
type (
	AllocationError       = device.AllocationError
	ExecutionError        = device.ExecutionError
	InvalidDimensionError = device.InvalidDimensionError
)

// Engine dispatches matrix products onto one device queue. It owns the
// lifetime of every buffer it allocates.
type Engine struct {
	queue   *device.Queue
	element ElementFunc
	log     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithElement replaces the work item function. The default is Element.
func WithElement(f ElementFunc) Option {
	return func(e *Engine) {
		if f != nil {
			e.element = f
		}
	}
}

// WithLogger sets the engine logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine on queue q.
func New(q *device.Queue, opts ...Option) *Engine {
	e := &Engine{
		queue:   q,
		element: Element,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Queue returns the queue the engine dispatches to.
func (e *Engine) Queue() *device.Queue { return e.queue }

// Allocate returns a shared buffer of count elements.
func (e *Engine) Allocate(count int) (*device.Buffer, error) {
	return e.queue.Allocate(count)
}

// Release frees a buffer allocated by Allocate.
func (e *Engine) Release(b *device.Buffer) error {
	return e.queue.Release(b)
}

// Dispatch submits the product C = A * B as M*N independent work items and
// returns the completion token without waiting. Work item i computes
// C[i/N, i%N] and writes only C[i]. A and B must not be written until the
// token has been waited on.
//
// Dispatch fails with *InvalidDimensionError for non-positive dimensions or
// mis-sized buffers, and with *ExecutionError when a buffer is released or
// foreign, or the queue rejects the submission.
func (e *Engine) Dispatch(d Dims, a, b, c *device.Buffer) (*device.Event, error) {
	if err := d.validate("dispatch"); err != nil {
		return nil, err
	}
	for _, op := range []struct {
		name string
		buf  *device.Buffer
		want int
	}{{"A", a, d.SizeA()}, {"B", b, d.SizeB()}, {"C", c, d.SizeC()}} {
		if err := e.queue.Check(op.buf); err != nil {
			return nil, &device.ExecutionError{Op: "dispatch", Err: fmt.Errorf("buffer %s: %w", op.name, err)}
		}
		if op.buf.Len() != op.want {
			return nil, &device.InvalidDimensionError{Op: "dispatch", Name: "len(" + op.name + ")", Value: op.buf.Len(), Want: op.want}
		}
	}
	if a == c || b == c {
		return nil, &device.ExecutionError{Op: "dispatch", Err: errors.New("output buffer aliases an input")}
	}

	av, bv, cv := a.Data(), b.Data(), c.Data()
	n, k, element := d.N, d.K, e.element
	ev, err := e.queue.Submit(d.SizeC(), func(start, end int) {
		for i := start; i < end; i++ {
			cv[i] = element(i/n, i%n, av, bv, n, k)
		}
	})
	if err != nil {
		return nil, err
	}
	e.log.Debug().Stringer("dims", d).Int("items", d.SizeC()).Msg("dispatched")
	return ev, nil
}

// Dispatch is Engine.Dispatch with the default work item.
func Dispatch(q *device.Queue, d Dims, a, b, c *device.Buffer) (*device.Event, error) {
	return New(q).Dispatch(d, a, b, c)
}

// Multiply computes a * b on q and returns a newly allocated C. a and b are
// copied into shared buffers, which are released before Multiply returns.
func Multiply(q *device.Queue, d Dims, a, b []float32) (c []float32, err error) {
	if err := d.validate("dispatch"); err != nil {
		return nil, err
	}
	if len(a) != d.SizeA() {
		return nil, &device.InvalidDimensionError{Op: "dispatch", Name: "len(A)", Value: len(a), Want: d.SizeA()}
	}
	if len(b) != d.SizeB() {
		return nil, &device.InvalidDimensionError{Op: "dispatch", Name: "len(B)", Value: len(b), Want: d.SizeB()}
	}

	e := New(q)
	bufs, err := e.allocateAll(d)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := e.releaseAll(bufs); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	copy(bufs[0].Data(), a)
	copy(bufs[1].Data(), b)
	ev, err := e.Dispatch(d, bufs[0], bufs[1], bufs[2])
	if err != nil {
		return nil, err
	}
	if err := ev.Wait(); err != nil {
		return nil, err
	}
	return append([]float32(nil), bufs[2].Data()...), nil
}

// allocateAll allocates A, B and C for d. On failure nothing stays allocated.
func (e *Engine) allocateAll(d Dims) ([]*device.Buffer, error) {
	bufs := make([]*device.Buffer, 0, 3)
	for _, size := range []int{d.SizeA(), d.SizeB(), d.SizeC()} {
		buf, err := e.Allocate(size)
		if err != nil {
			if rerr := e.releaseAll(bufs); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, err
		}
		bufs = append(bufs, buf)
	}
	return bufs, nil
}

func (e *Engine) releaseAll(bufs []*device.Buffer) error {
	var errs []error
	for _, b := range bufs {
		if err := e.Release(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
