// Package logging assembles the structured slog loggers used across the
// serialscan daemon and CLI.
//
// It centralizes level and output plumbing and exposes small attr helpers so
// components emit log lines with a consistent shape. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// The scanning core (resolve, validate, consensus, pipeline) never logs
// directly; it reports through the pipeline observer instead. This package
// exists for the shell around the core: daemon, IPC, store, CLI.
package logging
