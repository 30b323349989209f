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
	"sync/atomic"
)

// span is a free range of the arena slab, in elements.
type span struct {
	off, n int
}

// Arena is the host-only memory backend.
//
// With a capacity, the arena reserves one slab of that many bytes on first
// use and hands out cache-line aligned ranges of it first-fit; released
// ranges are coalesced with their free neighbours. Without a capacity, every
// buffer is a separate heap allocation and only the accounting is shared.
//
// Each dispatch passes two explicit synchronization points, publish before
// work items start and acquire after they have all joined. The memory
// ordering itself comes from handing work to the pool and joining its
// barrier; the arena records the points so InFlight reports how many
// dispatches currently hold arena memory on the workers.
type Arena struct {
	capacity int64

	mu    sync.Mutex
	slab  []float32
	spans []span
	used  int64
	peak  int64

	syncs    atomic.Uint64
	inflight atomic.Int64
}

// NewArena creates an arena bounded to capacity bytes. A capacity <= 0 means
// unbounded.
func NewArena(capacity int64) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{capacity: capacity}
}

func (a *Arena) kind() Kind { return KindArena }

// Capacity returns the configured capacity in bytes, or 0 if unbounded.
func (a *Arena) Capacity() int64 { return a.capacity }

// InUse returns the bytes currently handed out, rounded to cache lines.
func (a *Arena) InUse() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

func (a *Arena) inUse() int64 { return a.InUse() }

// Peak returns the largest InUse value observed.
func (a *Arena) Peak() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}

// Fragments returns the number of free ranges in the slab. It is 0 for an
// unbounded arena and 1 for a bounded arena with nothing allocated.
func (a *Arena) Fragments() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.slab == nil && a.capacity > 0 {
		return 1
	}
	return len(a.spans)
}

// SyncPoints returns how many publish and acquire points have been passed.
func (a *Arena) SyncPoints() uint64 { return a.syncs.Load() }

// InFlight returns the number of dispatches published but not yet acquired.
func (a *Arena) InFlight() int64 { return a.inflight.Load() }

func (a *Arena) publish() {
	a.syncs.Add(1)
	a.inflight.Add(1)
}

func (a *Arena) acquire() {
	a.syncs.Add(1)
	a.inflight.Add(-1)
}

func (a *Arena) alloc(count int) (region, error) {
	if count > maxElements {
		return region{}, ErrTooLarge
	}
	n := alignedElems(count)
	size := int64(n) * FloatSize

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.capacity == 0 {
		data := make([]float32, n)
		a.account(size)
		return region{data: data[:count:count], size: int(size)}, nil
	}

	if a.slab == nil {
		// Whole cache lines only.
		elems := int(a.capacity/FloatSize) &^ (CacheLineSize/FloatSize - 1)
		a.slab = make([]float32, elems)
		a.spans = []span{{off: 0, n: elems}}
	}

	for i, s := range a.spans {
		if s.n < n {
			continue
		}
		if s.n == n {
			a.spans = append(a.spans[:i], a.spans[i+1:]...)
		} else {
			a.spans[i] = span{off: s.off + n, n: s.n - n}
		}
		data := a.slab[s.off : s.off+count : s.off+count]
		clear(data)
		a.account(size)
		return region{data: data, off: s.off, size: int(size)}, nil
	}
	return region{}, ErrCapacityExceeded
}

func (a *Arena) free(r region) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.used -= int64(r.size)
	if a.capacity == 0 {
		return nil
	}

	n := r.size / FloatSize
	i := 0
	for i < len(a.spans) && a.spans[i].off < r.off {
		i++
	}
	a.spans = append(a.spans, span{})
	copy(a.spans[i+1:], a.spans[i:])
	a.spans[i] = span{off: r.off, n: n}

	// Coalesce with the following and then the preceding range.
	if i+1 < len(a.spans) && a.spans[i].off+a.spans[i].n == a.spans[i+1].off {
		a.spans[i].n += a.spans[i+1].n
		a.spans = append(a.spans[:i+1], a.spans[i+2:]...)
	}
	if i > 0 && a.spans[i-1].off+a.spans[i-1].n == a.spans[i].off {
		a.spans[i-1].n += a.spans[i].n
		a.spans = append(a.spans[:i], a.spans[i+1:]...)
	}
	return nil
}

// account records size newly handed out. Must hold a.mu.
func (a *Arena) account(size int64) {
	a.used += size
	a.peak = max(a.peak, a.used)
}
