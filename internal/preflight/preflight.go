package preflight

import (
	"serialscan/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDiskSpace("Data disk space", cfg.Paths.DataDir, minimumFreeBytes),
	}

	if cfg.Camera.Device != "" {
		results = append(results, CheckCameraDevice("Camera device", cfg.Camera.Device))
	}

	return results
}

// Passed reports whether every check in the set passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
