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
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Schedule selects how a Queue partitions work items across its workers.
type Schedule int

const (
	// ScheduleStatic gives each worker one contiguous range of items.
	ScheduleStatic Schedule = iota

	// ScheduleDynamic lets workers grab fixed-size batches of items through
	// an atomic counter until none are left.
	ScheduleDynamic
)

// DefaultBatchSize is the number of work items grabbed per atomic operation
// under ScheduleDynamic.
const DefaultBatchSize = 1024

func (s Schedule) String() string {
	switch s {
	case ScheduleStatic:
		return "static"
	case ScheduleDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ParseSchedule parses "static" or "dynamic". The empty string is static.
func ParseSchedule(s string) (Schedule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return ScheduleStatic, nil
	case "dynamic":
		return ScheduleDynamic, nil
	}
	return ScheduleStatic, fmt.Errorf("device: unknown schedule %q", s)
}

type options struct {
	kind          Kind
	workers       int
	schedule      Schedule
	batchSize     int
	arenaCapacity int64
	logger        zerolog.Logger
}

func defaultOptions() options {
	return options{
		kind:      KindAuto,
		schedule:  ScheduleStatic,
		batchSize: DefaultBatchSize,
		logger:    zerolog.Nop(),
	}
}

// Option configures a Queue.
type Option func(*options)

// WithBackend selects the memory backend. KindAuto (the default) uses Detect.
func WithBackend(k Kind) Option {
	return func(o *options) { o.kind = k }
}

// WithWorkers sets the worker pool size. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithSchedule sets the work partitioning strategy.
func WithSchedule(s Schedule) Option {
	return func(o *options) { o.schedule = s }
}

// WithBatchSize sets the batch size for ScheduleDynamic.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithArenaCapacity bounds the arena backend to the given number of bytes.
// It has no effect on the unified backend.
func WithArenaCapacity(bytes int64) Option {
	return func(o *options) { o.arenaCapacity = bytes }
}

// WithLogger sets the logger for queue events. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}
