package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"serialscan/internal/config"
	"serialscan/internal/logging"
	"serialscan/internal/ocr"
	"serialscan/internal/pipeline"
	"serialscan/internal/preflight"
	"serialscan/internal/sessions"
)

// ErrNoActiveScan is returned by frame and scan operations when no scan
// session is in progress.
var ErrNoActiveScan = errors.New("no active scan session")

// Daemon coordinates the scanning services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sessions.Store
	pipe   *pipeline.Orchestrator
	camera *cameraMonitor

	logPath  string
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	scanMu    sync.Mutex
	scanID    string
	scanStart time.Time
}

// ScanStatus describes the in-progress scan, if any.
type ScanStatus struct {
	Active     bool
	SessionID  string
	Serial     string
	Confidence float64
	Frames     int
	Locked     bool
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	LockFilePath   string
	SessionsDBPath string
	CameraDevice   string
	CameraPresent  bool
	Scan           ScanStatus
	Sessions       sessions.HealthSummary
	Checks         []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *sessions.Store, pipe *pipeline.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || pipe == nil {
		return nil, errors.New("daemon requires config, store, and pipeline")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "serialscand.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pipe:     pipe,
		logPath:  filepath.Join(cfg.Paths.LogDir, "serialscand.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Camera.HotplugMonitor {
		d.camera = newCameraMonitor(cfg, logger)
	}
	return d, nil
}

// Start acquires the daemon lock and brings up background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another serialscan daemon instance is already running")
	}

	for _, check := range []preflight.Result{
		preflight.CheckDirectoryAccess("Log directory", d.cfg.Paths.LogDir),
		preflight.CheckDirectoryAccess("Data directory", d.cfg.Paths.DataDir),
	} {
		if !check.Passed {
			_ = d.lock.Unlock()
			return fmt.Errorf("preflight %s: %s", check.Name, check.Detail)
		}
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Sessions left active by an unclean shutdown are unrecoverable.
	if abandoned, err := d.store.AbandonActive(d.ctx); err != nil {
		d.logger.Warn("failed to clean up stale sessions", logging.Error(err))
	} else if abandoned > 0 {
		d.logger.Info("abandoned stale sessions",
			logging.String(logging.FieldEventType, "sessions_cleanup"),
			logging.Int64("count", abandoned))
	}

	if d.camera != nil {
		if err := d.camera.Start(d.ctx); err != nil {
			d.logger.Warn("camera monitor failed to start", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("serialscan daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.StopScan(context.Background()); err != nil && !errors.Is(err, ErrNoActiveScan) {
		d.logger.Warn("failed to finish scan on shutdown", logging.Error(err))
	}

	if d.camera != nil {
		d.camera.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("serialscan daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// StartScan begins a new scan session. Any in-progress session is abandoned
// first.
func (d *Daemon) StartScan(ctx context.Context) (string, error) {
	if !d.running.Load() {
		return "", errors.New("daemon not running")
	}

	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	if d.scanID != "" {
		if err := d.store.Abandon(ctx, d.scanID, d.pipe.FramesProcessed()); err != nil && !errors.Is(err, sessions.ErrNotFound) {
			d.logger.Warn("failed to abandon previous scan", logging.Error(err))
		}
	}

	d.pipe.Reset()
	id := d.pipe.SessionID()
	if _, err := d.store.Start(ctx, id); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	d.scanID = id
	d.scanStart = time.Now()

	d.logger.Info("scan session started",
		logging.String(logging.FieldEventType, "scan_start"),
		logging.String(logging.FieldSessionID, id))
	return id, nil
}

// TrackFrame feeds one frame to the pipeline. On lock the session is
// finished and recorded; the result carries the verdict either way.
func (d *Daemon) TrackFrame(ctx context.Context, frame ocr.Frame) (pipeline.FrameResult, error) {
	if !d.running.Load() {
		return pipeline.FrameResult{}, errors.New("daemon not running")
	}

	d.scanMu.Lock()
	id := d.scanID
	start := d.scanStart
	d.scanMu.Unlock()
	if id == "" {
		return pipeline.FrameResult{}, ErrNoActiveScan
	}

	now := time.Now()
	if frame.OffsetSeconds > 0 {
		now = start.Add(time.Duration(frame.OffsetSeconds * float64(time.Second)))
	}

	result := d.pipe.ProcessFrame(frame, now)
	if result.Busy {
		return result, nil
	}

	if result.Stability.ShouldLock {
		d.finishLocked(ctx, id, result)
		return result, nil
	}

	if err := d.store.UpdateProgress(ctx, id, result.FrameIndex+1, result.Stability.Guidance); err != nil && !errors.Is(err, sessions.ErrNotFound) {
		d.logger.Warn("failed to record scan progress", logging.Error(err))
	}
	return result, nil
}

func (d *Daemon) finishLocked(ctx context.Context, id string, result pipeline.FrameResult) {
	d.scanMu.Lock()
	active := d.scanID == id
	if active {
		d.scanID = ""
	}
	d.scanMu.Unlock()
	if !active {
		return
	}

	err := d.store.CompleteLocked(ctx, id, result.Stability.StableText, result.Stability.Confidence, result.FrameIndex+1)
	if err != nil && !errors.Is(err, sessions.ErrNotFound) {
		d.logger.Warn("failed to record locked session", logging.Error(err))
		return
	}
	d.logger.Info("scan session locked",
		logging.String(logging.FieldEventType, "scan_locked"),
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldSerial, result.Stability.StableText),
		logging.Float64("confidence", result.Stability.Confidence))
}

// StopScan abandons the in-progress scan session, if any. A session that
// already locked keeps its recorded outcome.
func (d *Daemon) StopScan(ctx context.Context) error {
	d.scanMu.Lock()
	id := d.scanID
	d.scanID = ""
	d.scanMu.Unlock()
	if id == "" {
		return ErrNoActiveScan
	}

	frames := d.pipe.FramesProcessed()
	d.pipe.Reset()

	if err := d.store.Abandon(ctx, id, frames); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			// Already finished, locked before the stop arrived.
			return nil
		}
		return fmt.Errorf("abandon session: %w", err)
	}
	d.logger.Info("scan session abandoned",
		logging.String(logging.FieldEventType, "scan_stop"),
		logging.String(logging.FieldSessionID, id),
		logging.Int(logging.FieldFrame, frames))
	return nil
}

// ForceUnlock discards the current consensus so the next frames start a
// fresh stability window. The scan session stays open.
func (d *Daemon) ForceUnlock() error {
	d.scanMu.Lock()
	id := d.scanID
	d.scanMu.Unlock()
	if id == "" {
		return ErrNoActiveScan
	}
	d.pipe.ForceUnlock()
	d.logger.Info("consensus force unlocked",
		logging.String(logging.FieldEventType, "force_unlock"),
		logging.String(logging.FieldSessionID, id))
	return nil
}

// ListSessions returns sessions filtered by optional statuses.
func (d *Daemon) ListSessions(ctx context.Context, statuses []sessions.Status) ([]*sessions.Session, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// LastLocked returns the most recent locked session.
func (d *Daemon) LastLocked(ctx context.Context) (*sessions.Session, error) {
	return d.store.LastLocked(ctx)
}

// ClearSessions removes all recorded sessions.
func (d *Daemon) ClearSessions(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearAbandoned removes only abandoned sessions.
func (d *Daemon) ClearAbandoned(ctx context.Context) (int64, error) {
	return d.store.ClearAbandoned(ctx)
}

// SessionsHealth returns aggregate session diagnostics.
func (d *Daemon) SessionsHealth(ctx context.Context) (sessions.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (sessions.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		SessionsDBPath: d.cfg.SessionsDBPath(),
		CameraDevice:   d.cfg.Camera.Device,
		CameraPresent:  d.cameraPresent(),
		Checks:         preflight.RunAll(d.cfg),
	}

	if health, err := d.store.Health(ctx); err == nil {
		status.Sessions = health
	}

	d.scanMu.Lock()
	id := d.scanID
	d.scanMu.Unlock()
	if id != "" {
		now := time.Now()
		snap := d.pipe.Snapshot(now)
		status.Scan = ScanStatus{
			Active:     true,
			SessionID:  id,
			Serial:     snap.SerialText,
			Confidence: snap.OverallConfidence,
			Frames:     d.pipe.FramesProcessed(),
			Locked:     d.pipe.IsLocked(now),
		}
	}
	return status
}

func (d *Daemon) cameraPresent() bool {
	if d.camera != nil {
		return d.camera.Present()
	}
	result := preflight.CheckCameraDevice("camera", d.cfg.Camera.Device)
	return result.Passed
}
