// Package assetcache is the on-disk store for transformed page images.
//
// Each artifact lives in one file named by its fingerprint hash. A JSON
// index beside the entries carries size, content type, and access times
// bucketed to the hour; when the index is missing or corrupt the store
// rebuilds it by scanning the directory, so the cache survives crashes and
// manual cleanup. Eviction is least-recently-accessed first and runs after
// any write that pushes the store over its byte budget or drops the
// volume's free space under the floor.
package assetcache
