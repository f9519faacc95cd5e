// Package daemon coordinates the long-running scanner process: it owns the
// pipeline orchestrator, the session store, the single-instance lock, and
// the camera hotplug monitor, and exposes the operations the IPC layer
// serves to CLI clients.
package daemon
