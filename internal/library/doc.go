// Package library discovers series, chapters, and pages on disk and feeds
// them into the catalog. Scans are idempotent: the same library layout
// always produces the same catalog, with chapters and pages in natural
// reading order.
package library
