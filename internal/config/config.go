package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
	SocketPath string `toml:"socket_path"`
}

// Validation controls the serial validator.
type Validation struct {
	MinimumLength    int  `toml:"minimum_length"`
	MaximumLength    int  `toml:"maximum_length"`
	StrictValidation bool `toml:"strict_validation"`
	CacheSize        int  `toml:"cache_size"`
}

// Consensus controls the temporal consensus tracker.
type Consensus struct {
	BufferCapacity         int     `toml:"buffer_capacity"`
	RequiredStableFrames   int     `toml:"required_stable_frames"`
	ClusterWindow          int     `toml:"cluster_window"`
	StabilityWindowSeconds float64 `toml:"stability_window_seconds"`
	LockSeconds            float64 `toml:"lock_seconds"`
	ConfidenceThreshold    float64 `toml:"confidence_threshold"`
	MaxEditDistance        int     `toml:"max_edit_distance"`
}

// Camera describes the capture device the daemon watches for. Frame capture
// itself happens in an external process; the daemon only reports presence.
type Camera struct {
	Device         string `toml:"device"`
	HotplugMonitor bool   `toml:"hotplug_monitor"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Validation Validation `toml:"validation"`
	Consensus  Consensus  `toml:"consensus"`
	Camera     Camera     `toml:"camera"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "serialscan", "config.toml"), nil
}

// Load reads configuration from path, falling back to the default location
// when path is empty. A missing file yields defaults; a malformed file is an
// error. The result is normalized and validated.
func Load(path string) (*Config, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		resolved = defaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults cover everything; nothing to read.
	default:
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.DataDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if socket := strings.TrimSpace(c.Paths.SocketPath); socket != "" {
		if err := os.MkdirAll(filepath.Dir(socket), 0o755); err != nil {
			return fmt.Errorf("create socket directory: %w", err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("config path is required")
	}
	if _, err := os.Stat(trimmed); err == nil {
		return fmt.Errorf("config file already exists at %s", trimmed)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(trimmed, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration document.
func Sample() string {
	return sampleConfig
}

// SessionsDBPath returns the scan session database location.
func (c *Config) SessionsDBPath() string {
	return filepath.Join(c.Paths.DataDir, "sessions.db")
}
