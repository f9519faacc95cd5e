// Package preflight provides readiness checks for filesystem paths and the
// capture device the daemon depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to serve when a
//     required check fails.
//   - The CLI "serialscan status" command uses the same results to display
//     environment health.
package preflight
