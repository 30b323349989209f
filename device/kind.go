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
)

// Kind identifies the memory backend a Queue allocates shared buffers from.
type Kind int

const (
	// KindAuto selects the best backend available at runtime.
	KindAuto Kind = iota

	// KindUnified allocates buffers from an anonymous shared memory mapping.
	// The mapping is addressed directly by the control goroutine and every
	// worker, and is returned to the OS on release.
	KindUnified

	// KindArena allocates buffers from a host-only arena on the Go heap.
	// Dispatches publish the arena before work starts and acquire it after
	// the join, giving explicit synchronization points.
	KindArena
)

// Kinds lists the concrete backends, in preference order.
var Kinds = []Kind{KindUnified, KindArena}

// String returns a human-readable name for the backend.
func (k Kind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindUnified:
		return "unified"
	case KindArena:
		return "arena"
	default:
		return "unknown"
	}
}

// ParseKind parses a backend name as accepted in configuration files,
// command line flags and the USMGEMM_BACKEND environment variable.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "unified", "usm", "shared":
		return KindUnified, nil
	case "arena", "host":
		return KindArena, nil
	}
	return KindAuto, fmt.Errorf("device: unknown backend %q", s)
}
