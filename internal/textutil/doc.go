// Package textutil provides text processing utilities for serial readings:
// normalization of raw OCR text and edit-distance comparison between
// near-identical readings.
//
// Cleaning applies a Unicode NFKC fold before uppercasing so full-width and
// compatibility glyphs emitted by OCR engines collapse to their ASCII forms
// prior to any alphabet or pattern check.
package textutil
