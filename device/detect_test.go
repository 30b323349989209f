package device

import (
	"errors"
	"runtime"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"", KindAuto, true},
		{"auto", KindAuto, true},
		{"Unified", KindUnified, true},
		{"usm", KindUnified, true},
		{"arena", KindArena, true},
		{" host ", KindArena, true},
		{"cuda", KindAuto, false},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v, ok=%v", tt.in, got, err, tt.want, tt.ok)
		}
	}
}

func TestParseSchedule(t *testing.T) {
	if s, err := ParseSchedule("dynamic"); err != nil || s != ScheduleDynamic {
		t.Errorf("ParseSchedule(dynamic) = %v, %v", s, err)
	}
	if s, err := ParseSchedule(""); err != nil || s != ScheduleStatic {
		t.Errorf("ParseSchedule(\"\") = %v, %v", s, err)
	}
	if _, err := ParseSchedule("guided"); err == nil {
		t.Error("ParseSchedule(guided) returned nil error")
	}
}

func TestDetect(t *testing.T) {
	d := Detect()
	t.Logf("Detected: %s features=%v", d, d.Features)

	if d.Kind != KindUnified && d.Kind != KindArena {
		t.Errorf("Detect().Kind = %v", d.Kind)
	}
	if d.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", d.Arch, runtime.GOARCH)
	}
	if d.Cores < 1 {
		t.Errorf("Cores = %d", d.Cores)
	}
	if !Available(KindArena) {
		t.Error("arena backend must always be available")
	}
}

func TestNoUnifiedEnv(t *testing.T) {
	t.Setenv("USMGEMM_NO_UNIFIED", "1")
	if Available(KindUnified) {
		t.Error("unified backend available with USMGEMM_NO_UNIFIED=1")
	}
	if d := Detect(); d.Kind != KindArena {
		t.Errorf("Detect().Kind = %s, want arena", d.Kind)
	}
	if _, err := Lookup(KindUnified); !errors.Is(err, ErrUnsupportedBackend) {
		t.Errorf("Lookup(unified) = %v, want ErrUnsupportedBackend", err)
	}

	t.Setenv("USMGEMM_NO_UNIFIED", "false")
	if NoUnifiedEnv() {
		t.Error("NoUnifiedEnv() = true for \"false\"")
	}
}

func TestBackendEnv(t *testing.T) {
	t.Setenv("USMGEMM_BACKEND", "arena")
	if d := Detect(); d.Kind != KindArena {
		t.Errorf("Detect().Kind = %s with USMGEMM_BACKEND=arena", d.Kind)
	}
	t.Setenv("USMGEMM_BACKEND", "bogus")
	if BackendEnv() != KindAuto {
		t.Errorf("BackendEnv() = %s for bogus value, want auto", BackendEnv())
	}
}
