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
	"fmt"
	"math"

	"github.com/ajroetker/usmgemm/device"
)

// Dims are the dimensions of C = A * B:
//   - A is M x K (row-major)
//   - B is K x N (row-major)
//   - C is M x N (row-major)
type Dims struct {
	M, N, K int
}

// Square returns the dimensions of an n x n by n x n product.
func Square(n int) Dims {
	return Dims{M: n, N: n, K: n}
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.M, d.N, d.K)
}

// SizeA returns the element count of A.
func (d Dims) SizeA() int { return d.M * d.K }

// SizeB returns the element count of B.
func (d Dims) SizeB() int { return d.K * d.N }

// SizeC returns the element count of C, which is also the number of work
// items a dispatch creates.
func (d Dims) SizeC() int { return d.M * d.N }

// Ops returns the number of multiply-adds a dispatch performs, M*N*K.
func (d Dims) Ops() int64 {
	return int64(d.M) * int64(d.N) * int64(d.K)
}

// Validate rejects non-positive dimensions and dimensions whose buffer
// sizes overflow int. It returns *device.InvalidDimensionError.
func (d Dims) Validate() error {
	return d.validate("dispatch")
}

func (d Dims) validate(op string) error {
	for _, dim := range []struct {
		name string
		v    int
	}{{"M", d.M}, {"N", d.N}, {"K", d.K}} {
		if dim.v <= 0 {
			return &device.InvalidDimensionError{Op: op, Name: dim.name, Value: dim.v}
		}
	}
	for _, p := range []struct {
		name string
		x, y int
	}{{"M*K", d.M, d.K}, {"K*N", d.K, d.N}, {"M*N", d.M, d.N}} {
		if p.x > math.MaxInt/p.y {
			return &device.InvalidDimensionError{Op: op, Name: p.name, Reason: "overflows int"}
		}
	}
	return nil
}
