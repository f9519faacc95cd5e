// Package ocr defines the upstream interface between the scanning core and
// the external OCR engine: per-frame text observations with confidence,
// geometry, and provenance.
//
// The package owns no recognition logic. Observations arrive already
// materialized, either live over IPC from a capture front-end or replayed
// from a JSONL capture file, and flow downstream through resolve, validate,
// and consensus.
package ocr
