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
	"time"

	"github.com/ajroetker/usmgemm/device"
)

// Initializer populates A and B before a dispatch. It runs to completion on
// the calling goroutine before any work item starts.
type Initializer interface {
	Init(d Dims, a, b []float32) error
}

// Verifier checks C after the dispatch has been waited on.
type Verifier interface {
	Verify(d Dims, a, b, c []float32) error
}

// InitFunc adapts a function to Initializer.
type InitFunc func(d Dims, a, b []float32) error

func (f InitFunc) Init(d Dims, a, b []float32) error { return f(d, a, b) }

// VerifyFunc adapts a function to Verifier.
type VerifyFunc func(d Dims, a, b, c []float32) error

func (f VerifyFunc) Verify(d Dims, a, b, c []float32) error { return f(d, a, b, c) }

// Result summarizes one Run.
type Result struct {
	Dims     Dims
	Backend  device.Kind
	Workers  int
	Schedule device.Schedule
	Items    int64

	// Elapsed covers dispatch and wait only.
	Elapsed time.Duration
}

// GFLOPS returns the achieved rate, counting a multiply-add as two
// floating-point operations.
func (r Result) GFLOPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return 2 * float64(r.Dims.Ops()) / r.Elapsed.Seconds() / 1e9
}

// Run performs one complete product: allocate A, B and C, populate A and B
// with init, dispatch, wait, check C with verify, and release all three
// buffers. Buffers are released exactly once whether or not a step fails.
// A nil init leaves A and B zero; a nil verify skips verification.
func (e *Engine) Run(d Dims, init Initializer, verify Verifier) (res Result, err error) {
	if err := d.validate("run"); err != nil {
		return res, err
	}
	res = Result{
		Dims:     d,
		Backend:  e.queue.Device().Kind,
		Workers:  e.queue.Workers(),
		Schedule: e.queue.Schedule(),
	}

	bufs, err := e.allocateAll(d)
	if err != nil {
		return res, err
	}
	defer func() {
		if rerr := e.releaseAll(bufs); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release: %w", rerr))
		}
	}()
	a, b, c := bufs[0], bufs[1], bufs[2]

	if init != nil {
		if err := init.Init(d, a.Data(), b.Data()); err != nil {
			return res, fmt.Errorf("init: %w", err)
		}
	}

	start := time.Now()
	ev, err := e.Dispatch(d, a, b, c)
	if err != nil {
		return res, err
	}
	if err := ev.Wait(); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(start)
	res.Items = ev.Items()

	e.log.Info().
		Stringer("dims", d).
		Stringer("backend", res.Backend).
		Dur("elapsed", res.Elapsed).
		Float64("gflops", res.GFLOPS()).
		Msg("dispatch complete")

	if verify != nil {
		if err := verify.Verify(d, a.Data(), b.Data(), c.Data()); err != nil {
			return res, fmt.Errorf("verify: %w", err)
		}
		e.log.Debug().Msg("verified")
	}
	return res, nil
}
