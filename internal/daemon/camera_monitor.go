package daemon

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pilebones/go-udev/netlink"

	"serialscan/internal/config"
	"serialscan/internal/logging"
)

// cameraMonitor listens for udev netlink events and tracks whether the
// configured capture device is present. This avoids polling the device node
// and removes the need for udev rules that poke the daemon from outside.
type cameraMonitor struct {
	logger *slog.Logger
	device string

	present atomic.Bool

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newCameraMonitor creates a monitor for the configured capture device.
func newCameraMonitor(cfg *config.Config, logger *slog.Logger) *cameraMonitor {
	if cfg == nil {
		return nil
	}
	device := strings.TrimSpace(cfg.Camera.Device)
	if device == "" {
		return nil
	}
	return &cameraMonitor{
		logger: logging.NewComponentLogger(logger, "camera-monitor"),
		device: device,
	}
}

// Start begins listening for udev netlink events.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	// Seed presence from the current device node; netlink only reports
	// changes from here on.
	if _, err := os.Stat(m.device); err == nil {
		m.present.Store(true)
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera presence will be checked on demand",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"))
		return nil // Non-fatal; presence falls back to stat checks.
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
		logging.String("device", m.device))
	return nil
}

// Stop shuts down the monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("camera monitor stopped",
		logging.String(logging.FieldEventType, "camera_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *cameraMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Present reports whether the configured device is currently attached. When
// the netlink connection never came up this falls back to a stat check.
func (m *cameraMonitor) Present() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	connected := m.conn != nil
	m.mu.Unlock()
	if !connected {
		_, err := os.Stat(m.device)
		return err == nil
	}
	return m.present.Load()
}

func (m *cameraMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("camera monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "camera_monitor_error"))
		}
	}
}

// buildMatcher selects capture device events.
// Matches: SUBSYSTEM=video4linux, ACTION=add|remove.
func (m *cameraMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *cameraMonitor) handleEvent(uevent netlink.UEvent) {
	devname := m.extractDeviceName(uevent)
	if devname == "" || devname != m.device {
		return
	}

	switch uevent.Action {
	case "add":
		m.present.Store(true)
		m.logger.Info("camera attached",
			logging.String(logging.FieldEventType, "camera_attached"),
			logging.String("device", devname))
	case "remove":
		m.present.Store(false)
		m.logger.Info("camera detached",
			logging.String(logging.FieldEventType, "camera_detached"),
			logging.String("device", devname))
	}
}

func (m *cameraMonitor) extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
