package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ajroetker/usmgemm/device"
	"github.com/ajroetker/usmgemm/gemm"
	"github.com/ajroetker/usmgemm/matrix"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, gemm.Square(1024), cfg.Dims())
	require.Equal(t, uint64(1), cfg.Matrix.Seed)
	require.Equal(t, "auto", cfg.Device.Backend)
	require.Equal(t, matrix.ExactVerifier{}, cfg.Verifier())
}

func TestLoad(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		cfg, err := Load("/nonexistent/path/usmgemm.toml")
		require.ErrorIs(t, err, ErrConfigNotFound)
		require.Equal(t, Default(), cfg)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
[matrix]
m = 64
seed = 7

[device]
backend = "arena"
schedule = "dynamic"
arena-capacity = 1048576

[verify]
mode = "blas"
tolerance = 0.01
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, gemm.Dims{M: 64, N: 1024, K: 1024}, cfg.Dims())
		require.Equal(t, uint64(7), cfg.Matrix.Seed)
		require.Equal(t, "dynamic", cfg.Device.Schedule)
		require.Equal(t, int64(1<<20), cfg.Device.ArenaCapacity)
		require.Equal(t, matrix.BLASVerifier{Tolerance: 0.01}, cfg.Verifier())
		require.Len(t, cfg.QueueOptions(), 3)
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "invalid[toml")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "[matrix]\nrows = 3\n")
		_, err := Load(path)
		require.ErrorContains(t, err, "matrix.rows")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "[matrix]\nk = 0\n")
		_, err := Load(path)
		var dimErr *device.InvalidDimensionError
		require.ErrorAs(t, err, &dimErr)
		require.Equal(t, "K", dimErr.Name)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"unified backend", func(c *Config) { c.Device.Backend = "unified" }, false},
		{"verification off", func(c *Config) { c.Verify.Mode = VerifyNone }, false},
		{"negative m", func(c *Config) { c.Matrix.M = -1 }, true},
		{"unknown backend", func(c *Config) { c.Device.Backend = "gpu" }, true},
		{"unknown schedule", func(c *Config) { c.Device.Schedule = "guided" }, true},
		{"negative workers", func(c *Config) { c.Device.Workers = -2 }, true},
		{"negative capacity", func(c *Config) { c.Device.ArenaCapacity = -1 }, true},
		{"unknown mode", func(c *Config) { c.Verify.Mode = "fuzzy" }, true},
		{"negative tolerance", func(c *Config) { c.Verify.Tolerance = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVerifierNone(t *testing.T) {
	cfg := Default()
	cfg.Verify.Mode = VerifyNone
	require.Nil(t, cfg.Verifier())
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	subdir := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	configPath := writeConfig(t, root, "[matrix]\nm = 8\nn = 8\nk = 8\n")

	t.Chdir(subdir)

	// TempDir may sit behind a symlink (macOS /var).
	want, err := filepath.EvalSymlinks(configPath)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(findConfig())
	require.NoError(t, err)
	require.Equal(t, want, got)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, gemm.Square(8), cfg.Dims())
}
