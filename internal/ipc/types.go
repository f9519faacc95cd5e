package ipc

import "serialscan/internal/ocr"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ScanStatus describes the in-progress scan over the wire.
type ScanStatus struct {
	Active     bool    `json:"active"`
	SessionID  string  `json:"session_id"`
	Serial     string  `json:"serial"`
	Confidence float64 `json:"confidence"`
	Frames     int     `json:"frames"`
	Locked     bool    `json:"locked"`
}

// CheckResult mirrors a preflight result for status output.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running        bool          `json:"running"`
	PID            int           `json:"pid"`
	LockPath       string        `json:"lock_path"`
	SessionsDBPath string        `json:"sessions_db_path"`
	CameraDevice   string        `json:"camera_device"`
	CameraPresent  bool          `json:"camera_present"`
	Scan           ScanStatus    `json:"scan"`
	Sessions       HealthCounts  `json:"sessions"`
	Checks         []CheckResult `json:"checks"`
}

// HealthCounts aggregates session counts per lifecycle state.
type HealthCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Locked    int `json:"locked"`
	Abandoned int `json:"abandoned"`
}

// ScanStartRequest begins a new scan session.
type ScanStartRequest struct{}

// ScanStartResponse carries the new session id.
type ScanStartResponse struct {
	SessionID string `json:"session_id"`
}

// ScanStopRequest abandons the in-progress scan session.
type ScanStopRequest struct{}

// ScanStopResponse indicates scan stop result.
type ScanStopResponse struct {
	Stopped bool `json:"stopped"`
}

// TrackFrameRequest feeds one OCR frame to the pipeline.
type TrackFrameRequest struct {
	Frame ocr.Frame `json:"frame"`
}

// TrackFrameResponse carries the per-frame verdict.
type TrackFrameResponse struct {
	Busy       bool    `json:"busy"`
	SessionID  string  `json:"session_id"`
	FrameIndex int     `json:"frame_index"`
	Valid      int     `json:"valid"`
	Rejected   int     `json:"rejected"`
	State      string  `json:"state"`
	StableText string  `json:"stable_text"`
	Guidance   string  `json:"guidance"`
	ShouldLock bool    `json:"should_lock"`
	Confidence float64 `json:"confidence"`
}

// ForceUnlockRequest discards the current consensus.
type ForceUnlockRequest struct{}

// ForceUnlockResponse indicates the unlock was applied.
type ForceUnlockResponse struct {
	Unlocked bool `json:"unlocked"`
}

// Session mirrors a stored scan session for IPC callers.
type Session struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Serial     string  `json:"serial"`
	Confidence float64 `json:"confidence"`
	Frames     int     `json:"frames"`
	Guidance   string  `json:"guidance"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at"`
}

// SessionsListRequest filters session listing by status.
type SessionsListRequest struct {
	Statuses []string `json:"statuses"`
}

// SessionsListResponse contains session entries, newest first.
type SessionsListResponse struct {
	Sessions []Session `json:"sessions"`
}

// LastLockedRequest fetches the most recent locked session.
type LastLockedRequest struct{}

// LastLockedResponse carries the most recent locked session if one exists.
type LastLockedResponse struct {
	Found   bool    `json:"found"`
	Session Session `json:"session"`
}

// SessionsClearRequest removes sessions. AbandonedOnly restricts removal to
// abandoned sessions.
type SessionsClearRequest struct {
	AbandonedOnly bool `json:"abandoned_only"`
}

// SessionsClearResponse reports number of removed entries.
type SessionsClearResponse struct {
	Removed int64 `json:"removed"`
}

// SessionsHealthRequest fetches aggregate diagnostics.
type SessionsHealthRequest struct{}

// SessionsHealthResponse reports session health information.
type SessionsHealthResponse struct {
	HealthCounts
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalSessions    int    `json:"total_sessions"`
	Error            string `json:"error"`
}
