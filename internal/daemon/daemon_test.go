package daemon

import (
	"context"
	"errors"
	"testing"

	"serialscan/internal/config"
	"serialscan/internal/consensus"
	"serialscan/internal/logging"
	"serialscan/internal/ocr"
	"serialscan/internal/pipeline"
	"serialscan/internal/sessions"
	"serialscan/internal/testsupport"
)

func newDaemon(t *testing.T) (*Daemon, *sessions.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pipe, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	d, err := New(cfg, store, pipe, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d, store, cfg
}

func frameAt(offset float64, text string) ocr.Frame {
	return ocr.Frame{
		OffsetSeconds: offset,
		Motion:        ocr.MotionStable,
		Observations: []ocr.Observation{
			{Text: text, Confidence: 0.95},
		},
	}
}

func TestDaemonStartStop(t *testing.T) {
	d, _, _ := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start should fail while running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestSingleInstanceLock(t *testing.T) {
	d, store, cfg := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	pipe, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	second, err := New(cfg, store, pipe, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon instance should fail to acquire the lock")
	}
}

func TestScanLifecycleRecordsLock(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	id, err := d.StartScan(ctx)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}

	var locked bool
	for i := 0; i < 5 && !locked; i++ {
		result, err := d.TrackFrame(ctx, frameAt(float64(i), "C02JQ8XYZ01"))
		if err != nil {
			t.Fatalf("TrackFrame %d failed: %v", i, err)
		}
		locked = result.Stability.ShouldLock
	}
	if !locked {
		t.Fatal("expected steady frames to lock")
	}

	session, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if session.Status != sessions.StatusLocked || session.Serial != "C02JQ8XYZ01" {
		t.Fatalf("unexpected session outcome: %#v", session)
	}

	// The scan is finished; further frames need a new session.
	if _, err := d.TrackFrame(ctx, frameAt(6, "C02JQ8XYZ01")); !errors.Is(err, ErrNoActiveScan) {
		t.Fatalf("expected ErrNoActiveScan after lock, got %v", err)
	}
}

func TestStopScanAbandonsSession(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	id, err := d.StartScan(ctx)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if _, err := d.TrackFrame(ctx, frameAt(0, "C02JQ8XYZ01")); err != nil {
		t.Fatalf("TrackFrame failed: %v", err)
	}
	if err := d.StopScan(ctx); err != nil {
		t.Fatalf("StopScan failed: %v", err)
	}

	session, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if session.Status != sessions.StatusAbandoned {
		t.Fatalf("expected abandoned session, got %s", session.Status)
	}
	if err := d.StopScan(ctx); !errors.Is(err, ErrNoActiveScan) {
		t.Fatalf("expected ErrNoActiveScan, got %v", err)
	}
}

func TestForceUnlockRequiresActiveScan(t *testing.T) {
	d, _, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := d.ForceUnlock(); !errors.Is(err, ErrNoActiveScan) {
		t.Fatalf("expected ErrNoActiveScan, got %v", err)
	}

	if _, err := d.StartScan(ctx); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if err := d.ForceUnlock(); err != nil {
		t.Fatalf("ForceUnlock failed: %v", err)
	}
}

func TestStartScanAbandonsPreviousSession(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first, err := d.StartScan(ctx)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	second, err := d.StartScan(ctx)
	if err != nil {
		t.Fatalf("second StartScan failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct session ids")
	}

	session, err := store.Get(ctx, first)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if session.Status != sessions.StatusAbandoned {
		t.Fatalf("expected first session abandoned, got %s", session.Status)
	}
}

func TestStatusReflectsScanState(t *testing.T) {
	d, _, cfg := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || status.Scan.Active {
		t.Fatalf("unexpected idle status: %#v", status)
	}
	if status.SessionsDBPath != cfg.SessionsDBPath() {
		t.Fatalf("unexpected db path %q", status.SessionsDBPath)
	}

	id, err := d.StartScan(ctx)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	status = d.Status(ctx)
	if !status.Scan.Active || status.Scan.SessionID != id {
		t.Fatalf("expected active scan in status: %#v", status.Scan)
	}
}

func TestCleanupAbandonsStaleSessionsOnStart(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()

	testsupport.StartSession(t, store, "stale-session")
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session, err := store.Get(ctx, "stale-session")
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if session.Status != sessions.StatusAbandoned {
		t.Fatalf("expected stale session abandoned, got %s", session.Status)
	}
}

func TestGuidanceRecordedDuringScan(t *testing.T) {
	d, store, _ := newDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	id, err := d.StartScan(ctx)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if _, err := d.TrackFrame(ctx, frameAt(0, "C02JQ8XYZ01")); err != nil {
		t.Fatalf("TrackFrame failed: %v", err)
	}

	session, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if session.Frames != 1 || session.Guidance != consensus.GuidanceSearching {
		t.Fatalf("unexpected progress fields: %#v", session)
	}
}
