// Package transform decodes, resizes, and re-encodes page images on demand.
//
// The engine is a pure function of its options and the request spec: the
// same input bytes always produce byte-identical output, which the cache
// fingerprint contract depends on. The identity spec costs nothing (no
// decode) and passes source bytes through untouched.
//
// Thumbnail policy: resize to cover the configured box (300x400 by
// default), then center-crop to it. Sources smaller than the box shrink the
// box proportionally rather than upscaling. Resampling is Lanczos.
package transform
