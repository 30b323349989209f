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

package matrix

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ajroetker/usmgemm/gemm"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// DefaultTolerance is the relative tolerance used by BLASVerifier when none
// is set.
const DefaultTolerance = 1e-3

// VerifyError reports the first element of C that failed verification.
type VerifyError struct {
	Row, Col  int
	Got, Want float32
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("C[%d,%d] = %v, want %v", e.Row, e.Col, e.Got, e.Want)
}

func checkSizes(d gemm.Dims, a, b, c []float32) error {
	if len(a) != d.SizeA() || len(b) != d.SizeB() || len(c) != d.SizeC() {
		return fmt.Errorf("matrix: buffers sized %d, %d, %d for %v", len(a), len(b), len(c), d)
	}
	return nil
}

// ExactVerifier requires C to be bit-identical to Reference. With Samples > 0
// only that many randomly chosen elements are recomputed, which keeps
// verification of large products at O(Samples*K).
type ExactVerifier struct {
	Samples int
	Seed    uint64
}

// Verify implements gemm.Verifier.
func (v ExactVerifier) Verify(d gemm.Dims, a, b, c []float32) error {
	if err := checkSizes(d, a, b, c); err != nil {
		return err
	}
	check := func(row, col int) error {
		want := dot(d, a, b, row, col)
		got := c[row*d.N+col]
		if math.Float32bits(got) != math.Float32bits(want) {
			return &VerifyError{Row: row, Col: col, Got: got, Want: want}
		}
		return nil
	}

	if v.Samples <= 0 || v.Samples >= d.SizeC() {
		for i := range d.M {
			for j := range d.N {
				if err := check(i, j); err != nil {
					return err
				}
			}
		}
		return nil
	}

	rng := rand.New(rand.NewPCG(v.Seed, 3))
	for range v.Samples {
		if err := check(rng.IntN(d.M), rng.IntN(d.N)); err != nil {
			return err
		}
	}
	return nil
}

// BLASVerifier compares C against gonum's blas32 Gemm. The BLAS reduction
// order differs from the work item's, so elements are compared with a
// relative tolerance instead of bit equality.
type BLASVerifier struct {
	Tolerance float64
}

// Verify implements gemm.Verifier.
func (v BLASVerifier) Verify(d gemm.Dims, a, b, c []float32) error {
	if err := checkSizes(d, a, b, c); err != nil {
		return err
	}
	tol := v.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	want := make([]float32, d.SizeC())
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: d.M, Cols: d.K, Data: a, Stride: d.K},
		blas32.General{Rows: d.K, Cols: d.N, Data: b, Stride: d.N},
		0,
		blas32.General{Rows: d.M, Cols: d.N, Data: want, Stride: d.N},
	)

	for i, w := range want {
		got := c[i]
		diff := math.Abs(float64(got) - float64(w))
		if diff > tol*max(1, math.Abs(float64(w))) || math.IsNaN(float64(got)) {
			return &VerifyError{Row: i / d.N, Col: i % d.N, Got: got, Want: w}
		}
	}
	return nil
}
