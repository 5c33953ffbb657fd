package transform

import "fmt"

// Encoding selects the output raster encoding of a transform.
type Encoding string

const (
	// EncodingAuto picks WebP whenever a transform occurs; it is the zero
	// value and the bandwidth-efficient default.
	EncodingAuto Encoding = ""
	// EncodingOriginal keeps the source image's own encoding.
	EncodingOriginal Encoding = "original"
	EncodingWebP     Encoding = "webp"
	EncodingJPEG     Encoding = "jpeg"
)

// ParseEncoding maps a request parameter to an Encoding.
func ParseEncoding(value string) (Encoding, error) {
	switch Encoding(value) {
	case EncodingAuto, EncodingOriginal, EncodingWebP, EncodingJPEG:
		return Encoding(value), nil
	default:
		return "", fmt.Errorf("unknown encoding %q", value)
	}
}

// Spec is the requested output shape for a page image. It is a value type:
// two specs are equal iff all fields are equal. The zero Spec means
// passthrough: original bytes, original encoding, no decode.
type Spec struct {
	// MaxWidth and MaxHeight bound the output; zero means unbounded (the
	// engine's ceiling still applies). Aspect ratio is always preserved and
	// images are never upscaled.
	MaxWidth  int
	MaxHeight int
	// Quality is the lossy encode quality (1..100); zero uses the engine
	// default. A nonzero quality on its own forces a re-encode, so callers
	// asking for quality always get it applied.
	Quality int
	// Thumbnail requests the fixed thumbnail box with cover-and-center-crop
	// geometry, overriding MaxWidth/MaxHeight.
	Thumbnail bool
	Encoding  Encoding
}

// IsIdentity reports whether the spec requests no work at all: no resize,
// no thumbnail, no explicit quality, and no encoding change. Identity specs
// pass bytes through untouched with no decode.
func (s Spec) IsIdentity() bool {
	if s.MaxWidth != 0 || s.MaxHeight != 0 || s.Quality != 0 || s.Thumbnail {
		return false
	}
	return s.Encoding == EncodingAuto || s.Encoding == EncodingOriginal
}

// Canonical renders the spec as a deterministic key fragment for
// fingerprinting. Field order and formatting are fixed; changing them
// invalidates every cache entry.
func (s Spec) Canonical() string {
	thumb := 0
	if s.Thumbnail {
		thumb = 1
	}
	return fmt.Sprintf("w=%d;h=%d;q=%d;t=%d;e=%s", s.MaxWidth, s.MaxHeight, s.Quality, thumb, s.Encoding)
}
