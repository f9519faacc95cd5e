package sessions

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a session id has no row.
var ErrNotFound = errors.New("session not found")

// Status represents the lifecycle of a scan session.
type Status string

const (
	// StatusActive marks a session still consuming frames.
	StatusActive Status = "active"
	// StatusLocked marks a session that ended with a confident serial.
	StatusLocked Status = "locked"
	// StatusAbandoned marks a session stopped before any lock.
	StatusAbandoned Status = "abandoned"
)

var allStatuses = []Status{StatusActive, StatusLocked, StatusAbandoned}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Session is one scan attempt persisted in SQLite.
type Session struct {
	ID         string
	Status     Status
	Serial     string
	Confidence float64
	Frames     int
	Guidance   string
	StartedAt  time.Time
	FinishedAt *time.Time
	UpdatedAt  time.Time
}

// Active reports whether the session is still consuming frames.
func (s Session) Active() bool {
	return s.Status == StatusActive
}

// Duration returns the session length, using now for unfinished sessions.
func (s Session) Duration(now time.Time) time.Duration {
	end := now
	if s.FinishedAt != nil {
		end = *s.FinishedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// HealthSummary aggregates session counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Active    int
	Locked    int
	Abandoned int
}

// DatabaseHealth captures diagnostic information about the sessions database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalSessions    int
	Error            string
}
