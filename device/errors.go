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
	"fmt"
)

var (
	// ErrReleased is reported when a released buffer is used.
	ErrReleased = errors.New("device: buffer already released")

	// ErrDoubleRelease is returned by Release for a buffer released before.
	ErrDoubleRelease = errors.New("device: buffer released twice")

	// ErrForeignBuffer is returned when a buffer is used with a queue that
	// did not allocate it.
	ErrForeignBuffer = errors.New("device: buffer belongs to another queue")

	// ErrQueueClosed is reported for work submitted to a closed queue.
	ErrQueueClosed = errors.New("device: queue closed")

	// ErrQueueFaulted is reported for work submitted to a queue that is in
	// the error state after a work item faulted.
	ErrQueueFaulted = errors.New("device: queue in error state")

	// ErrUnsupportedBackend is returned when the requested backend is not
	// available on this platform or was disabled by the environment.
	ErrUnsupportedBackend = errors.New("device: backend not supported")

	// ErrCapacityExceeded is reported when a bounded arena cannot fit a
	// request.
	ErrCapacityExceeded = errors.New("device: arena capacity exceeded")

	// ErrTooLarge is reported when a request overflows the addressable size.
	ErrTooLarge = errors.New("device: request exceeds addressable memory")
)

// AllocationError reports that the backend could not satisfy a buffer
// request. It is fatal for the run: there is no retry and no fallback.
type AllocationError struct {
	Backend Kind
	Count   int
	Err     error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %d floats on %s: %v", e.Count, e.Backend, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// ExecutionError reports that the queue rejected a submission, or that a
// work item faulted while running. Op is "dispatch" or "wait".
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// InvalidDimensionError reports a non-positive size, or a buffer whose
// length does not match the dimensions it is used with. Want is zero when
// the value only needs to be positive.
type InvalidDimensionError struct {
	Op     string
	Name   string
	Value  int
	Want   int
	Reason string
}

func (e *InvalidDimensionError) Error() string {
	switch {
	case e.Want > 0:
		return fmt.Sprintf("%s: invalid dimension %s = %d, want %d", e.Op, e.Name, e.Value, e.Want)
	case e.Reason != "":
		return fmt.Sprintf("%s: invalid dimension %s: %s", e.Op, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s: invalid dimension %s = %d, must be positive", e.Op, e.Name, e.Value)
}
