// Package ipc exposes daemon control over JSON-RPC on a Unix domain socket.
// The CLI is the only intended client; the wire types are plain DTOs so the
// daemon's internal types never leak into the protocol.
package ipc
