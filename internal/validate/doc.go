// Package validate judges corrected serial candidates against length,
// alphabet, and pattern rules and scores them for downstream consensus.
//
// Validation is a pure function of its input: identical candidates always
// produce identical outcomes. The optional bounded cache only memoizes the
// string-derived part of the verdict and can be swapped for a no-op cache
// without changing any output. Rejections are reported as data, never as
// errors; garbage text in a frame is a normal outcome on the hot path.
package validate
