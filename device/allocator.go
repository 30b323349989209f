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

import "math"

// FloatSize is the size in bytes of one buffer element.
const FloatSize = 4

// CacheLineSize is the granularity, in bytes, allocations are rounded to.
const CacheLineSize = 64

// maxElements bounds a single request so its byte size fits in an int.
const maxElements = (math.MaxInt - CacheLineSize) / FloatSize

// region is the storage backing one Buffer. raw holds the mapping for the
// unified backend; off is the element offset inside the arena slab.
type region struct {
	data []float32
	raw  []byte
	off  int
	size int
}

// allocator is a memory backend. publish and acquire bracket every dispatch:
// publish runs on the control goroutine before work items start, acquire
// after the join returns.
type allocator interface {
	kind() Kind
	alloc(count int) (region, error)
	free(r region) error
	publish()
	acquire()
	inUse() int64
}

// alignedElems rounds count up to a whole number of cache lines.
func alignedElems(count int) int {
	const perLine = CacheLineSize / FloatSize
	return (count + perLine - 1) &^ (perLine - 1)
}

func newAllocator(k Kind, arenaCapacity int64) (allocator, error) {
	switch k {
	case KindUnified:
		u, err := newUnified()
		if err != nil {
			return nil, err
		}
		return u, nil
	case KindArena:
		return NewArena(arenaCapacity), nil
	}
	return nil, ErrUnsupportedBackend
}
