package ipc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"serialscan/internal/daemon"
	"serialscan/internal/ipc"
	"serialscan/internal/logging"
	"serialscan/internal/ocr"
	"serialscan/internal/pipeline"
	"serialscan/internal/sessions"
	"serialscan/internal/testsupport"
)

func frameAt(offset float64, text string) ocr.Frame {
	return ocr.Frame{
		OffsetSeconds: offset,
		Motion:        ocr.MotionStable,
		Observations: []ocr.Observation{
			{Text: text, Confidence: 0.95},
		},
	}
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	pipe, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	d, err := daemon.New(cfg, store, pipe, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Scan.Active {
		t.Fatal("expected no active scan yet")
	}

	scanResp, err := client.ScanStart()
	if err != nil {
		t.Fatalf("ScanStart RPC failed: %v", err)
	}
	if scanResp.SessionID == "" {
		t.Fatal("expected a session id")
	}

	var lockResp *ipc.TrackFrameResponse
	for i := 0; i < 5; i++ {
		frameResp, err := client.TrackFrame(frameAt(float64(i), "C02JQ8XYZ01"))
		if err != nil {
			t.Fatalf("TrackFrame %d failed: %v", i, err)
		}
		if frameResp.Busy {
			t.Fatalf("frame %d unexpectedly busy", i)
		}
		lockResp = frameResp
		if frameResp.ShouldLock {
			break
		}
	}
	if lockResp == nil || !lockResp.ShouldLock {
		t.Fatalf("expected steady frames to lock, last: %#v", lockResp)
	}
	if lockResp.StableText != "C02JQ8XYZ01" {
		t.Fatalf("unexpected locked serial %q", lockResp.StableText)
	}

	lastResp, err := client.LastLocked()
	if err != nil {
		t.Fatalf("LastLocked failed: %v", err)
	}
	if !lastResp.Found || lastResp.Session.Serial != "C02JQ8XYZ01" {
		t.Fatalf("unexpected last locked session: %#v", lastResp)
	}

	// Second scan, abandoned this time.
	if _, err := client.ScanStart(); err != nil {
		t.Fatalf("second ScanStart failed: %v", err)
	}
	if _, err := client.TrackFrame(frameAt(0, "C02JQ8XYZ01")); err != nil {
		t.Fatalf("TrackFrame failed: %v", err)
	}
	stopScan, err := client.ScanStop()
	if err != nil {
		t.Fatalf("ScanStop failed: %v", err)
	}
	if !stopScan.Stopped {
		t.Fatal("expected scan stop to report stopped")
	}

	listResp, err := client.SessionsList(nil)
	if err != nil {
		t.Fatalf("SessionsList failed: %v", err)
	}
	if len(listResp.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(listResp.Sessions))
	}

	lockedResp, err := client.SessionsList([]string{string(sessions.StatusLocked)})
	if err != nil {
		t.Fatalf("SessionsList filter failed: %v", err)
	}
	if len(lockedResp.Sessions) != 1 || lockedResp.Sessions[0].Serial != "C02JQ8XYZ01" {
		t.Fatalf("unexpected locked sessions: %#v", lockedResp.Sessions)
	}

	healthResp, err := client.SessionsHealth()
	if err != nil {
		t.Fatalf("SessionsHealth failed: %v", err)
	}
	if healthResp.Total != 2 || healthResp.Locked != 1 || healthResp.Abandoned != 1 {
		t.Fatalf("unexpected health: %#v", healthResp)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !strings.HasSuffix(dbHealth.DBPath, "sessions.db") || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected db health: %#v", dbHealth)
	}

	clearAbandoned, err := client.SessionsClear(true)
	if err != nil {
		t.Fatalf("SessionsClear(abandoned) failed: %v", err)
	}
	if clearAbandoned.Removed != 1 {
		t.Fatalf("expected 1 abandoned session removed, got %d", clearAbandoned.Removed)
	}

	clearAll, err := client.SessionsClear(false)
	if err != nil {
		t.Fatalf("SessionsClear failed: %v", err)
	}
	if clearAll.Removed != 1 {
		t.Fatalf("expected 1 session removed, got %d", clearAll.Removed)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestForceUnlockWithoutScanReturnsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	pipe, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	d, err := daemon.New(cfg, store, pipe, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := cfg.Paths.SocketPath
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	if _, err := client.Start(); err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if _, err := client.ForceUnlock(); err == nil {
		t.Fatal("expected error for force unlock without an active scan")
	}
}
