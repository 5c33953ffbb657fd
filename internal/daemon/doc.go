// Package daemon ties the serving side together: catalog, scanner, asset
// cache, resolver, and the HTTP API, with flock-based locking so only one
// instance runs per data directory.
package daemon
