package device

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// Device describes the executor a Queue runs on: a memory backend plus the
// host cores the worker pool schedules work items onto.
type Device struct {
	// Kind is the memory backend buffers are allocated from.
	Kind Kind

	// Name is a human-readable backend name, e.g. "unified-mmap".
	Name string

	// Arch is the GOARCH the process runs on.
	Arch string

	// Cores is the number of logical CPUs available to the worker pool.
	Cores int

	// Features lists the CPU features detected for Arch, e.g. "avx2", "fma".
	Features []string
}

func (d Device) String() string {
	return fmt.Sprintf("%s (%s, %d cores)", d.Name, d.Arch, d.Cores)
}

// NoUnifiedEnv checks if the USMGEMM_NO_UNIFIED environment variable is set.
// When set, the unified backend is reported unavailable and Detect falls back
// to the host arena regardless of platform support.
func NoUnifiedEnv() bool {
	val := os.Getenv("USMGEMM_NO_UNIFIED")
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// BackendEnv returns the backend forced by the USMGEMM_BACKEND environment
// variable, or KindAuto if unset or unparsable.
func BackendEnv() Kind {
	k, err := ParseKind(os.Getenv("USMGEMM_BACKEND"))
	if err != nil {
		return KindAuto
	}
	return k
}

// Available reports whether backend k can be used in this process.
func Available(k Kind) bool {
	switch k {
	case KindUnified:
		return unifiedSupported && !NoUnifiedEnv()
	case KindArena:
		return true
	}
	return false
}

// Detect returns the preferred device for this process. USMGEMM_BACKEND
// overrides the choice when the requested backend is available.
func Detect() Device {
	if k := BackendEnv(); k != KindAuto && Available(k) {
		return describe(k)
	}
	for _, k := range Kinds {
		if Available(k) {
			return describe(k)
		}
	}
	return describe(KindArena)
}

// Lookup returns the device for backend k. KindAuto behaves like Detect.
func Lookup(k Kind) (Device, error) {
	if k == KindAuto {
		return Detect(), nil
	}
	if !Available(k) {
		return Device{}, fmt.Errorf("%w: %s", ErrUnsupportedBackend, k)
	}
	return describe(k), nil
}

func describe(k Kind) Device {
	name := "host-arena"
	if k == KindUnified {
		name = "unified-mmap"
	}
	return Device{
		Kind:     k,
		Name:     name,
		Arch:     runtime.GOARCH,
		Cores:    runtime.NumCPU(),
		Features: cpuFeatures(),
	}
}
