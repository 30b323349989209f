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

//go:build linux || darwin || freebsd || netbsd || openbsd

package device

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const unifiedSupported = true

// unified maps each buffer as its own anonymous shared region. The pages are
// coherent between the control goroutine and the workers, so publish and
// acquire are no-ops.
type unified struct {
	mapped atomic.Int64
}

func newUnified() (*unified, error) {
	if !Available(KindUnified) {
		return nil, ErrUnsupportedBackend
	}
	return &unified{}, nil
}

func (u *unified) kind() Kind { return KindUnified }

func (u *unified) alloc(count int) (region, error) {
	if count > maxElements {
		return region{}, ErrTooLarge
	}
	size := alignedElems(count) * FloatSize
	raw, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return region{}, err
	}
	u.mapped.Add(int64(size))
	data := unsafe.Slice((*float32)(unsafe.Pointer(&raw[0])), count)
	return region{data: data, raw: raw, size: size}, nil
}

func (u *unified) free(r region) error {
	if err := unix.Munmap(r.raw); err != nil {
		return err
	}
	u.mapped.Add(-int64(r.size))
	return nil
}

func (u *unified) inUse() int64 { return u.mapped.Load() }

func (u *unified) publish() {}

func (u *unified) acquire() {}
