package testsupport

import (
	"path/filepath"
	"testing"

	"serialscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.SocketPath = filepath.Join(base, "serialscand.sock")
	cfg.Camera.HotplugMonitor = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCameraDevice overrides the capture device path on the test config.
func WithCameraDevice(path string) ConfigOption {
	return func(c *config.Config) {
		c.Camera.Device = path
	}
}

// WithStrictValidation enables strict serial validation on the test config.
func WithStrictValidation() ConfigOption {
	return func(c *config.Config) {
		c.Validation.StrictValidation = true
	}
}
