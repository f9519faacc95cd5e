// Package consensus accumulates validated serial readings across frames and
// decides when the scanner has seen enough consistent evidence to lock a
// final answer.
//
// Readings land in a bounded ring buffer and the most recent few are
// clustered by Levenshtein distance, so a single residual OCR error per
// frame still counts toward the majority. The tracker walks a four-state
// machine (seeking, candidate, stabilizing, locked) and only ever moves
// forward; the sole ways back to seeking are lock expiry, an explicit
// reset, or a forced unlock.
package consensus
