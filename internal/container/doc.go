// Package container reads page images out of archive files. Four container
// formats sit behind one Reader interface: ZIP/CBZ, RAR/CBR, 7z/CB7, and
// tar/CBT (plain, gzip, or zstd compressed). The format is detected from the
// file signature, never the extension, so misnamed archives still open.
//
// Handles are strictly short-lived: opened, used for one listing or
// extraction, and closed. The underlying decoders are not safe for
// concurrent reuse of a single handle, and pooling them buys nothing for
// page-sized reads. Stream formats (RAR, tar) are decoded up to the
// requested member only; index formats (ZIP, 7z) decompress just the one
// member. Source files are opened read-only on every path.
package container
