// Package pipeline sequences the scanning core (resolve, validate,
// consensus) over incoming frames and owns the single-flight guard that
// keeps per-frame processing serialized.
//
// A frame arriving while another is in flight is dropped and reported busy,
// never queued: frames are cheap to re-acquire from the camera, so bounded
// backpressure beats buffering. Observability is an injected observer
// interface with attach/detach lifecycle rather than any process-global
// logger or metrics sink.
package pipeline
