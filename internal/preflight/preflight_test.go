package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"serialscan/internal/testsupport"
)

func TestCheckDirectoryAccessOK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccessMissing(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "missing"))
	if result.Passed {
		t.Fatal("expected failure for missing directory")
	}
}

func TestCheckDirectoryAccessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result := CheckDirectoryAccess("test", path)
	if result.Passed {
		t.Fatal("expected failure for regular file")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDiskSpace("test", dir, 1); !result.Passed {
		t.Fatalf("expected pass for tiny requirement, got: %s", result.Detail)
	}
	if result := CheckDiskSpace("test", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for absurd requirement")
	}
}

func TestCheckCameraDeviceMissing(t *testing.T) {
	result := CheckCameraDevice("test", filepath.Join(t.TempDir(), "video0"))
	if result.Passed {
		t.Fatal("expected failure for missing device")
	}
}

func TestRunAllReportsEachConcern(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(cfg)
	if len(results) < 3 {
		t.Fatalf("expected directory, disk, and camera checks, got %d", len(results))
	}
	names := make(map[string]bool, len(results))
	for _, result := range results {
		names[result.Name] = result.Passed
	}
	if !names["Log directory"] || !names["Data directory"] {
		t.Fatalf("directory checks should pass on temp dirs: %+v", results)
	}
	if Passed(results) {
		// The default camera device will not exist in CI.
		t.Log("all checks passed; camera device present on this host")
	}
}
