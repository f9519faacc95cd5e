package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.Validation.MinimumLength != defaultMinimumLength {
		t.Fatalf("expected default minimum length, got %d", cfg.Validation.MinimumLength)
	}
	if cfg.Consensus.ConfidenceThreshold != defaultConfidenceThreshold {
		t.Fatalf("expected default threshold, got %v", cfg.Consensus.ConfidenceThreshold)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[validation]
minimum_length = 11
strict_validation = true

[consensus]
lock_seconds = 3.5
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Validation.MinimumLength != 11 || !cfg.Validation.StrictValidation {
		t.Fatalf("override not applied: %+v", cfg.Validation)
	}
	if cfg.Consensus.LockSeconds != 3.5 {
		t.Fatalf("override not applied: %+v", cfg.Consensus)
	}
	if cfg.Consensus.BufferCapacity != defaultBufferCapacity {
		t.Fatalf("untouched defaults should survive, got %d", cfg.Consensus.BufferCapacity)
	}
}

func TestValidateRejectsInvertedLengthRange(t *testing.T) {
	cfg := Default()
	cfg.Validation.MinimumLength = 13
	cfg.Validation.MaximumLength = 12
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for minimum_length > maximum_length")
	}
	if !strings.Contains(err.Error(), "minimum_length") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadConsensus(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.Consensus.BufferCapacity = 0 }},
		{"frames exceed capacity", func(c *Config) { c.Consensus.RequiredStableFrames = 99 }},
		{"threshold above one", func(c *Config) { c.Consensus.ConfidenceThreshold = 1.5 }},
		{"negative edit distance", func(c *Config) { c.Consensus.MaxEditDistance = -1 }},
		{"zero stability window", func(c *Config) { c.Consensus.StabilityWindowSeconds = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[consensus]") {
		t.Fatal("sample config missing consensus section")
	}
}
