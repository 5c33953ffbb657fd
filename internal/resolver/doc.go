// Package resolver coordinates serving a page image: catalog lookup, cache
// fingerprinting, and the read-transform-store pipeline on a miss.
//
// Misses for the same fingerprint are coalesced into one computation whose
// result (or error) is shared by every waiting caller. Errors are never
// cached, and a failed cache write degrades to serving the bytes uncached.
package resolver
