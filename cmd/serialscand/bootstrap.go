package main

import (
	"os"
	"path/filepath"
	"strings"

	"serialscan/internal/config"
)

func buildSocketPath(cfg *config.Config, override string) string {
	if socket := strings.TrimSpace(override); socket != "" {
		return socket
	}
	if cfg != nil && cfg.Paths.SocketPath != "" {
		return cfg.Paths.SocketPath
	}
	return filepath.Join(os.TempDir(), "serialscand.sock")
}
