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

// Package gemm provides the dispatch engine for dense matrix multiplication
// on a device queue.
//
// C = A * B is computed as one work item per output element. Each work item
// runs the naive reduction over k in ascending order, so results are
// bit-reproducible across runs, schedules and backends:
//
//	// C = A * B where A is MxK, B is KxN, C is MxN, all row-major
//	q, _ := device.NewQueue()
//	defer q.Close()
//
//	eng := gemm.New(q)
//	d := gemm.Dims{M: m, N: n, K: k}
//	a, _ := eng.Allocate(m * k)
//	b, _ := eng.Allocate(k * n)
//	c, _ := eng.Allocate(m * n)
//	// ... fill a.Data() and b.Data() ...
//	ev, err := eng.Dispatch(d, a, b, c)
//	if err != nil { ... }
//	if err := ev.Wait(); err != nil { ... }
//	// ... read c.Data() ...
//	eng.Release(a)
//	eng.Release(b)
//	eng.Release(c)
//
// Run wraps that sequence with deferred releases and pluggable
// initialization and verification.
package gemm
