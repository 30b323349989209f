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

import "sync/atomic"

// Buffer is a shared buffer of float32 slots, logically a row-major matrix.
// The slice returned by Data is read and written in place by the control
// goroutine and by work items; no copy step exists under either backend.
//
// A Buffer is owned by the Queue that allocated it and must be released
// exactly once, after the last dispatch or host read that touches it.
type Buffer struct {
	queue    *Queue
	id       uint64
	region   region
	released atomic.Bool
}

// Len returns the number of float32 slots.
func (b *Buffer) Len() int {
	return len(b.region.data)
}

// Data returns the buffer contents, or nil once the buffer is released.
func (b *Buffer) Data() []float32 {
	if b.released.Load() {
		return nil
	}
	return b.region.data
}

// Released reports whether Release has been called for the buffer.
func (b *Buffer) Released() bool {
	return b.released.Load()
}

// Kind returns the backend the buffer was allocated from.
func (b *Buffer) Kind() Kind {
	return b.queue.dev.Kind
}

// ID returns an identifier unique among buffers of the same queue.
func (b *Buffer) ID() uint64 {
	return b.id
}
