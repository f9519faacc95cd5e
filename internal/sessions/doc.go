// Package sessions persists scan session outcomes in SQLite. Each session
// records one attempt to lock a serial number: when it started, how it
// ended, and what the consensus engine settled on. The store is support
// infrastructure for status reporting and history; the scanning pipeline
// itself never blocks on it.
package sessions
