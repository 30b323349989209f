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

// Package matrix provides the collaborators around a dispatch: initializers
// that populate A and B, and verifiers that check C once the dispatch has
// been waited on. Matrices are flat row-major float32 slices.
package matrix

import (
	"fmt"
	"math/rand/v2"

	"github.com/ajroetker/usmgemm/gemm"
	"golang.org/x/sync/errgroup"
)

// Fill sets every element of dst to a pseudo-random value in [0.0, 1.0).
func Fill(dst []float32, rng *rand.Rand) {
	for i := range dst {
		dst[i] = rng.Float32()
	}
}

// Identity returns the n x n identity matrix.
func Identity(n int) []float32 {
	out := make([]float32, n*n)
	for i := range n {
		out[i*n+i] = 1
	}
	return out
}

// RandomFill populates A and B with values in [0.0, 1.0). A and B draw from
// independent PCG streams derived from Seed, so the contents depend only on
// Seed and the dimensions.
type RandomFill struct {
	Seed uint64
}

// Init fills a and b concurrently and returns once both are complete.
func (r RandomFill) Init(d gemm.Dims, a, b []float32) error {
	if len(a) != d.SizeA() || len(b) != d.SizeB() {
		return fmt.Errorf("matrix: buffers sized %d and %d, want %d and %d", len(a), len(b), d.SizeA(), d.SizeB())
	}
	var g errgroup.Group
	g.Go(func() error {
		Fill(a, rand.New(rand.NewPCG(r.Seed, 1)))
		return nil
	})
	g.Go(func() error {
		Fill(b, rand.New(rand.NewPCG(r.Seed, 2)))
		return nil
	})
	return g.Wait()
}

// Reference computes C = A * B serially with the ascending-k order and
// float32 rounding of gemm.Element.
func Reference(d gemm.Dims, a, b, c []float32) {
	for i := range d.M {
		for j := range d.N {
			c[i*d.N+j] = dot(d, a, b, i, j)
		}
	}
}

func dot(d gemm.Dims, a, b []float32, row, col int) float32 {
	var sum float32
	for p := range d.K {
		sum += float32(a[row*d.K+p] * b[p*d.N+col])
	}
	return sum
}
