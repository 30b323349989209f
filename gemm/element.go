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

// ElementFunc computes one output element C[row, col] from row-major A (M x K)
// and B (K x N).
type ElementFunc func(row, col int, a, b []float32, n, k int) float32

// Element is the work item of a dispatch:
// C[row,col] = sum(A[row,p] * B[p,col]) for p in 0..K-1, summed in ascending p.
//
// Each step is one MultiplyAdd, so every architecture produces the same bits.
func Element(row, col int, a, b []float32, n, k int) float32 {
	var sum float32
	aRow := a[row*k : row*k+k]
	for p, av := range aRow {
		sum = MultiplyAdd(sum, av, b[p*n+col])
	}
	return sum
}

// MultiplyAdd returns acc + x*y with the product rounded to float32 before
// the add. The explicit conversion keeps the compiler from fusing the two.
func MultiplyAdd(acc, x, y float32) float32 {
	return acc + float32(x*y)
}
