// Package config loads usmgemm run settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ajroetker/usmgemm/device"
	"github.com/ajroetker/usmgemm/gemm"
	"github.com/ajroetker/usmgemm/matrix"
	"github.com/samber/lo"
)

const ConfigFile = "usmgemm.toml"

var ErrConfigNotFound = errors.New("config file not found")

// Verification modes.
const (
	VerifyNone  = "none"
	VerifyExact = "exact"
	VerifyBLAS  = "blas"
)

// VerifyModes lists the accepted [verify] mode values.
var VerifyModes = []string{VerifyNone, VerifyExact, VerifyBLAS}

// Config represents the usmgemm.toml configuration file.
type Config struct {
	Matrix Matrix `toml:"matrix"`
	Device Device `toml:"device"`
	Verify Verify `toml:"verify"`
}

// Matrix holds the problem shape and the seed for A and B.
type Matrix struct {
	M    int    `toml:"m"`
	N    int    `toml:"n"`
	K    int    `toml:"k"`
	Seed uint64 `toml:"seed"`
}

// Device selects the backend and how work items are scheduled.
type Device struct {
	Backend  string `toml:"backend"`
	Workers  int    `toml:"workers"`
	Schedule string `toml:"schedule"`

	// Bytes; 0 leaves the arena unbounded.
	ArenaCapacity int64 `toml:"arena-capacity"`
}

// Verify selects how C is checked.
type Verify struct {
	Mode      string  `toml:"mode"`
	Tolerance float64 `toml:"tolerance"`
}

// Default returns the configuration used when no file is present: a
// 1024 x 1024 x 1024 product on the best available backend, verified exactly.
func Default() Config {
	return Config{
		Matrix: Matrix{M: 1024, N: 1024, K: 1024, Seed: 1},
		Device: Device{
			Backend:  device.KindAuto.String(),
			Schedule: device.ScheduleStatic.String(),
		},
		Verify: Verify{Mode: VerifyExact, Tolerance: matrix.DefaultTolerance},
	}
}

// Load reads configuration from path, or searches upward from cwd when path
// is empty. Keys absent from the file keep their Default values. Unknown
// keys are an error. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if path = findConfig(); path == "" {
			return cfg, ErrConfigNotFound
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, ErrConfigNotFound
		}
		return cfg, err
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := lo.Map(undecoded, func(k toml.Key, _ int) string { return k.String() })
		return cfg, fmt.Errorf("parse %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

func findConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Dims().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := device.ParseKind(c.Device.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := device.ParseSchedule(c.Device.Schedule); err != nil {
		errs = append(errs, err)
	}
	if c.Device.Workers < 0 {
		errs = append(errs, fmt.Errorf("device.workers = %d, want >= 0", c.Device.Workers))
	}
	if c.Device.ArenaCapacity < 0 {
		errs = append(errs, fmt.Errorf("device.arena-capacity = %d, want >= 0", c.Device.ArenaCapacity))
	}
	if !lo.Contains(VerifyModes, c.Verify.Mode) {
		errs = append(errs, fmt.Errorf("verify.mode %q not one of %s", c.Verify.Mode, strings.Join(VerifyModes, "|")))
	}
	if c.Verify.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("verify.tolerance = %v, want >= 0", c.Verify.Tolerance))
	}
	return errors.Join(errs...)
}

// Dims returns the configured product shape.
func (c Config) Dims() gemm.Dims {
	return gemm.Dims{M: c.Matrix.M, N: c.Matrix.N, K: c.Matrix.K}
}

// QueueOptions converts the [device] table to queue options. It assumes a
// validated config.
func (c Config) QueueOptions() []device.Option {
	kind, _ := device.ParseKind(c.Device.Backend)
	sched, _ := device.ParseSchedule(c.Device.Schedule)
	opts := []device.Option{
		device.WithBackend(kind),
		device.WithSchedule(sched),
		device.WithArenaCapacity(c.Device.ArenaCapacity),
	}
	if c.Device.Workers > 0 {
		opts = append(opts, device.WithWorkers(c.Device.Workers))
	}
	return opts
}

// Initializer returns the initializer for A and B.
func (c Config) Initializer() gemm.Initializer {
	return matrix.RandomFill{Seed: c.Matrix.Seed}
}

// Verifier returns the verifier for C, or nil when verification is off.
func (c Config) Verifier() gemm.Verifier {
	switch c.Verify.Mode {
	case VerifyExact:
		return matrix.ExactVerifier{}
	case VerifyBLAS:
		return matrix.BLASVerifier{Tolerance: c.Verify.Tolerance}
	}
	return nil
}
