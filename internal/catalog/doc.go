// Package catalog is the sqlite-backed library index: series, chapters,
// pages, and reading progress.
//
// The scanner writes whole-series snapshots via ReplaceSeries; readers use
// Locate to turn a (series, chapter, page) coordinate into the source
// reference the resolver reads from. Series rows are keyed by slug so IDs
// and progress survive rescans.
package catalog
