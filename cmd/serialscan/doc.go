// Command serialscan is the CLI front-end for the serial scanning daemon.
// It talks to serialscand over a Unix socket for live scans and can replay
// recorded OCR frame logs entirely in-process.
package main
