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
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// forEachBackend runs fn once per backend available on this machine.
func forEachBackend(t *testing.T, fn func(t *testing.T, q *Queue)) {
	t.Helper()
	for _, k := range Kinds {
		if !Available(k) {
			t.Logf("backend %s not available, skipping", k)
			continue
		}
		t.Run(k.String(), func(t *testing.T) {
			q, err := NewQueue(WithBackend(k), WithWorkers(4))
			if err != nil {
				t.Fatalf("NewQueue(%s) error = %v", k, err)
			}
			defer func() {
				if err := q.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}()
			fn(t, q)
		})
	}
}

func TestAllocateIsZeroedAndSized(t *testing.T) {
	forEachBackend(t, func(t *testing.T, q *Queue) {
		for _, count := range []int{1, 15, 16, 17, 1000} {
			b, err := q.Allocate(count)
			if err != nil {
				t.Fatalf("Allocate(%d) error = %v", count, err)
			}
			if b.Len() != count || len(b.Data()) != count {
				t.Errorf("Allocate(%d): Len() = %d, len(Data()) = %d", count, b.Len(), len(b.Data()))
			}
			for i, v := range b.Data() {
				if v != 0 {
					t.Fatalf("Allocate(%d): Data()[%d] = %v, want 0", count, i, v)
				}
			}
			if b.Kind() != q.Device().Kind {
				t.Errorf("Kind() = %s, want %s", b.Kind(), q.Device().Kind)
			}
			if err := q.Release(b); err != nil {
				t.Fatalf("Release() error = %v", err)
			}
		}
	})
}

func TestAllocateRejectsNonPositive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, q *Queue) {
		for _, count := range []int{0, -1} {
			_, err := q.Allocate(count)
			var dimErr *InvalidDimensionError
			if !errors.As(err, &dimErr) {
				t.Errorf("Allocate(%d) error = %v, want *InvalidDimensionError", count, err)
			}
		}
		if q.Live() != 0 {
			t.Errorf("Live() = %d, want 0", q.Live())
		}
	})
}

func TestAllocateTooLarge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, q *Queue) {
		_, err := q.Allocate(maxElements + 1)
		var allocErr *AllocationError
		if !errors.As(err, &allocErr) {
			t.Fatalf("Allocate(huge) error = %v, want *AllocationError", err)
		}
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("Allocate(huge) error = %v, want ErrTooLarge", err)
		}
	})
}

func TestReleaseDiscipline(t *testing.T) {
	forEachBackend(t, func(t *testing.T, q *Queue) {
		b, err := q.Allocate(64)
		if err != nil {
			t.Fatal(err)
		}
		if q.Live() != 1 {
			t.Errorf("Live() = %d, want 1", q.Live())
		}
		if err := q.Release(b); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if !b.Released() || b.Data() != nil {
			t.Error("released buffer still exposes its data")
		}
		if err := q.Check(b); !errors.Is(err, ErrReleased) {
			t.Errorf("Check(released) = %v, want ErrReleased", err)
		}
		if err := q.Release(b); !errors.Is(err, ErrDoubleRelease) {
			t.Errorf("second Release() = %v, want ErrDoubleRelease", err)
		}
		if q.Live() != 0 || q.Allocations() != 1 || q.Releases() != 1 {
			t.Errorf("Live=%d Allocations=%d Releases=%d, want 0/1/1", q.Live(), q.Allocations(), q.Releases())
		}
		if q.InUse() != 0 {
			t.Errorf("InUse() = %d after release, want 0", q.InUse())
		}
	})
}

func TestReleaseForeignBuffer(t *testing.T) {
	q1, err := NewQueue(WithBackend(KindArena))
	if err != nil {
		t.Fatal(err)
	}
	defer q1.Close()
	q2, err := NewQueue(WithBackend(KindArena))
	if err != nil {
		t.Fatal(err)
	}
	defer q2.Close()

	b, err := q1.Allocate(8)
	if err != nil {
		t.Fatal(err)
	}
	if err := q2.Release(b); !errors.Is(err, ErrForeignBuffer) {
		t.Errorf("q2.Release(b) = %v, want ErrForeignBuffer", err)
	}
	if err := q2.Check(b); !errors.Is(err, ErrForeignBuffer) {
		t.Errorf("q2.Check(b) = %v, want ErrForeignBuffer", err)
	}
	if err := q1.Release(b); err != nil {
		t.Errorf("q1.Release(b) = %v", err)
	}
}

func TestSubmitVisibleWithoutCopy(t *testing.T) {
	forEachBackend(t, func(t *testing.T, q *Queue) {
		const n = 4099
		b, err := q.Allocate(n)
		if err != nil {
			t.Fatal(err)
		}
		defer q.Release(b)

		data := b.Data()
		ev, err := q.Submit(n, func(start, end int) {
			for i := start; i < end; i++ {
				data[i] = float32(i) * 0.5
			}
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if err := ev.Wait(); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if ev.Items() != n || ev.Size() != n {
			t.Errorf("Items() = %d, Size() = %d, want %d", ev.Items(), ev.Size(), n)
		}
		for i, v := range b.Data() {
			if v != float32(i)*0.5 {
				t.Fatalf("Data()[%d] = %v, want %v", i, v, float32(i)*0.5)
			}
		}
	})
}

func TestSubmitDynamicScheduleCoversOnce(t *testing.T) {
	q, err := NewQueue(WithBackend(KindArena), WithWorkers(3), WithSchedule(ScheduleDynamic), WithBatchSize(7))
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()

	const n = 1000
	hits := make([]atomic.Int32, n)
	ev, err := q.Submit(n, func(start, end int) {
		for i := start; i < end; i++ {
			hits[i].Add(1)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatal(err)
	}
	for i := range hits {
		if hits[i].Load() != 1 {
			t.Fatalf("item %d ran %d times", i, hits[i].Load())
		}
	}
}

func TestWorkItemFaultPutsQueueInErrorState(t *testing.T) {
	q, err := NewQueue(WithBackend(KindArena), WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()

	ev, err := q.Submit(10, func(start, end int) {
		panic("device fault")
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	err = ev.Wait()
	var execErr *ExecutionError
	if !errors.As(err, &execErr) || execErr.Op != "wait" {
		t.Fatalf("Wait() = %v, want *ExecutionError from wait", err)
	}
	if ev.Wait() != err {
		t.Error("second Wait() returned a different result")
	}
	if !q.Faulted() {
		t.Error("Faulted() = false after a work item panicked")
	}

	_, err = q.Submit(10, func(start, end int) {})
	if !errors.Is(err, ErrQueueFaulted) {
		t.Errorf("Submit on faulted queue = %v, want ErrQueueFaulted", err)
	}
}

func TestSubmitOnClosedQueue(t *testing.T) {
	q, err := NewQueue(WithBackend(KindArena))
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	_, err = q.Submit(4, func(start, end int) {})
	var execErr *ExecutionError
	if !errors.As(err, &execErr) || !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit() = %v, want *ExecutionError wrapping ErrQueueClosed", err)
	}
	_, err = q.Allocate(4)
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) {
		t.Errorf("Allocate() = %v, want *AllocationError", err)
	}
}

func TestCloseReportsLeakedBuffers(t *testing.T) {
	q, err := NewQueue(WithBackend(KindArena))
	if err != nil {
		t.Fatal(err)
	}
	b, err := q.Allocate(32)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err == nil {
		t.Error("Close() with a live buffer returned nil")
	}
	if !b.Released() || q.Live() != 0 {
		t.Error("Close() did not release the leaked buffer")
	}
}

func TestCloseJoinsUnwaitedEvents(t *testing.T) {
	for _, k := range Kinds {
		if !Available(k) {
			continue
		}
		t.Run(k.String(), func(t *testing.T) {
			q, err := NewQueue(WithBackend(k), WithWorkers(4))
			if err != nil {
				t.Fatal(err)
			}
			const n = 1 << 16
			b, err := q.Allocate(n)
			if err != nil {
				t.Fatal(err)
			}
			data := b.Data()
			var written atomic.Int64
			ev, err := q.Submit(n, func(start, end int) {
				time.Sleep(20 * time.Millisecond)
				for i := start; i < end; i++ {
					data[i] = 1
				}
				written.Add(int64(end - start))
			})
			if err != nil {
				t.Fatal(err)
			}

			err = q.Close()
			if err == nil || !strings.Contains(err.Error(), "1 events not waited on") {
				t.Errorf("Close() = %v, want unwaited event reported", err)
			}
			if got := written.Load(); got != n {
				t.Errorf("work items finished before release = %d, want %d", got, n)
			}
			if !b.Released() {
				t.Error("Close() did not release the live buffer")
			}
			if err := ev.Wait(); err != nil {
				t.Errorf("Wait() after Close = %v", err)
			}
		})
	}
}

func TestArenaSyncPointsBracketDispatch(t *testing.T) {
	q, err := NewQueue(WithBackend(KindArena), WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()

	a := q.Arena()
	if a == nil {
		t.Fatal("Arena() = nil on the arena backend")
	}
	before := a.SyncPoints()
	ev, err := q.Submit(100, func(start, end int) {})
	if err != nil {
		t.Fatal(err)
	}
	if got := a.SyncPoints(); got != before+1 {
		t.Errorf("SyncPoints() after Submit = %d, want %d", got, before+1)
	}
	if got := a.InFlight(); got != 1 {
		t.Errorf("InFlight() after Submit = %d, want 1", got)
	}
	if err := ev.Wait(); err != nil {
		t.Fatal(err)
	}
	ev.Wait()
	if got := a.SyncPoints(); got != before+2 {
		t.Errorf("SyncPoints() after Wait = %d, want %d", got, before+2)
	}
	if got := a.InFlight(); got != 0 {
		t.Errorf("InFlight() after Wait = %d, want 0", got)
	}
}
