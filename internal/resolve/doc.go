// Package resolve corrects optically ambiguous characters in raw OCR
// readings before validation.
//
// Apple serials never contain I, O, or Q, so a camera reading an O almost
// certainly saw a 0. The resolver substitutes per position using a confusion
// table with misread penalties, adjusts the reading's confidence by what it
// had to change, and reports every substitution so downstream consumers can
// explain the correction. It never inserts or deletes characters and never
// fails: text that cannot be mapped into the serial alphabet passes through
// for the validator to reject.
package resolve
