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

package device

import (
	"sync"

	"github.com/ajroetker/usmgemm/internal/workerpool"
)

// Event is the completion token of one submission.
type Event struct {
	queue   *Queue
	barrier *workerpool.Barrier
	n       int

	once sync.Once
	err  error
}

// Wait blocks until every work item of the submission has finished. After it
// returns, all writes made by the work items are visible to the caller.
// There is no timeout and no cancellation.
//
// If a work item faulted, the queue enters the error state and Wait returns
// *ExecutionError. Wait may be called more than once and from several
// goroutines; every call returns the same result.
func (e *Event) Wait() error {
	e.once.Do(func() {
		err := e.barrier.Wait()
		e.queue.mem.acquire()
		e.queue.liveMu.Lock()
		delete(e.queue.pending, e)
		e.queue.liveMu.Unlock()
		if err != nil {
			e.queue.faulted.Store(true)
			e.queue.log.Error().Err(err).Int("items", e.n).Msg("work item faulted")
			e.err = &ExecutionError{Op: "wait", Err: err}
		}
	})
	return e.err
}

// Size returns the number of work items submitted.
func (e *Event) Size() int { return e.n }

// Items returns the number of work items that completed. It equals Size
// after a successful Wait.
func (e *Event) Items() int64 { return e.barrier.Items() }
