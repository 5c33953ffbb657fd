// Package api holds the wire types shared by the daemon's HTTP handlers
// and the CLI, the service layer that adapts the catalog to them, and the
// HTTP client the CLI uses to reach a running daemon.
package api
