package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Misconfiguration fails here,
// before any component is constructed.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateConsensus(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		return errors.New("paths.socket_path must be set")
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.MinimumLength <= 0 {
		return errors.New("validation.minimum_length must be positive")
	}
	if c.Validation.MaximumLength <= 0 {
		return errors.New("validation.maximum_length must be positive")
	}
	if c.Validation.MinimumLength > c.Validation.MaximumLength {
		return fmt.Errorf("validation.minimum_length (%d) must not exceed validation.maximum_length (%d)",
			c.Validation.MinimumLength, c.Validation.MaximumLength)
	}
	if c.Validation.CacheSize < 0 {
		return errors.New("validation.cache_size must be >= 0 (0 disables the cache)")
	}
	return nil
}

func (c *Config) validateConsensus() error {
	if err := ensurePositiveMap(map[string]int{
		"consensus.buffer_capacity":        c.Consensus.BufferCapacity,
		"consensus.required_stable_frames": c.Consensus.RequiredStableFrames,
		"consensus.cluster_window":         c.Consensus.ClusterWindow,
	}); err != nil {
		return err
	}
	if c.Consensus.RequiredStableFrames > c.Consensus.BufferCapacity {
		return errors.New("consensus.required_stable_frames must not exceed consensus.buffer_capacity")
	}
	if c.Consensus.ClusterWindow > c.Consensus.BufferCapacity {
		return errors.New("consensus.cluster_window must not exceed consensus.buffer_capacity")
	}
	if c.Consensus.StabilityWindowSeconds <= 0 {
		return errors.New("consensus.stability_window_seconds must be positive")
	}
	if c.Consensus.LockSeconds <= 0 {
		return errors.New("consensus.lock_seconds must be positive")
	}
	if c.Consensus.ConfidenceThreshold <= 0 || c.Consensus.ConfidenceThreshold > 1 {
		return errors.New("consensus.confidence_threshold must be in (0, 1]")
	}
	if c.Consensus.MaxEditDistance < 0 {
		return errors.New("consensus.max_edit_distance must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
