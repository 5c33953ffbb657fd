// Command tosho is the CLI for the tosho manga server: it runs the daemon
// in the foreground and talks to a running daemon's HTTP API for scans,
// status, cache management, and reading progress.
package main
