package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
)

var (
	// ErrDecode means the source bytes are not a decodable raster image.
	ErrDecode = errors.New("image decode failed")
	// ErrEncode means re-encoding the transformed image failed.
	ErrEncode = errors.New("image encode failed")
)

// Options fixes the engine's transform policy. Zero fields fall back to the
// repository defaults.
type Options struct {
	// Quality and ThumbnailQuality are the lossy encode qualities used when
	// a spec does not carry its own.
	Quality          int
	ThumbnailQuality int
	// ThumbnailWidth x ThumbnailHeight is the thumbnail box. Thumbnails are
	// resized to cover the box and center-cropped, so output geometry is
	// always this aspect ratio (scaled down, never up, for small sources).
	ThumbnailWidth  int
	ThumbnailHeight int
	// MaxWidth x MaxHeight caps every output regardless of the request.
	MaxWidth  int
	MaxHeight int
}

func (o Options) withDefaults() Options {
	if o.Quality <= 0 {
		o.Quality = 85
	}
	if o.ThumbnailQuality <= 0 {
		o.ThumbnailQuality = 75
	}
	if o.ThumbnailWidth <= 0 {
		o.ThumbnailWidth = 300
	}
	if o.ThumbnailHeight <= 0 {
		o.ThumbnailHeight = 400
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = 1920
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = 2560
	}
	return o
}

// Engine applies transform specs to raw image bytes. It is stateless and
// safe for concurrent use; Apply is a pure function of (options, input,
// spec), which the cache fingerprinting relies on.
type Engine struct {
	opts Options
}

// NewEngine builds an engine with the given policy.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Signature identifies the engine policy for fingerprinting, so cache
// entries produced under a different configuration never collide with
// current ones.
func (e *Engine) Signature() string {
	o := e.opts
	return fmt.Sprintf("q=%d;tq=%d;tb=%dx%d;max=%dx%d",
		o.Quality, o.ThumbnailQuality, o.ThumbnailWidth, o.ThumbnailHeight, o.MaxWidth, o.MaxHeight)
}

// Apply transforms raw image bytes per the spec and returns the output
// bytes with their content type. The identity spec returns the input slice
// untouched with a sniffed content type and no decode cost.
func (e *Engine) Apply(raw []byte, spec Spec) ([]byte, string, error) {
	if spec.IsIdentity() {
		contentType := sniffImageType(raw)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return raw, contentType, nil
	}

	sourceType := sniffImageType(raw)
	img, err := decode(raw, sourceType)
	if err != nil {
		return nil, "", err
	}

	if spec.Thumbnail {
		img = e.thumbnail(img)
	} else {
		img = e.fit(img, spec.MaxWidth, spec.MaxHeight)
	}

	return e.encode(img, spec, sourceType)
}

func decode(raw []byte, sourceType string) (image.Image, error) {
	if sourceType == "image/webp" {
		img, err := webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// thumbnail resizes to cover the thumbnail box and center-crops to it.
// Sources smaller than the box shrink the box proportionally instead of
// upscaling, keeping the box aspect ratio either way.
func (e *Engine) thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	boxW, boxH := e.opts.ThumbnailWidth, e.opts.ThumbnailHeight

	if srcW < boxW || srcH < boxH {
		scaleW := float64(srcW) / float64(boxW)
		scaleH := float64(srcH) / float64(boxH)
		scale := scaleW
		if scaleH < scale {
			scale = scaleH
		}
		boxW = int(float64(boxW) * scale)
		boxH = int(float64(boxH) * scale)
		if boxW < 1 {
			boxW = 1
		}
		if boxH < 1 {
			boxH = 1
		}
	}
	return imaging.Fill(img, boxW, boxH, imaging.Center, imaging.Lanczos)
}

// fit scales the image down to the requested bounds, then to the engine
// ceiling, preserving aspect ratio. imaging.Fit never upscales.
func (e *Engine) fit(img image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 || maxW > e.opts.MaxWidth {
		maxW = e.opts.MaxWidth
	}
	if maxH <= 0 || maxH > e.opts.MaxHeight {
		maxH = e.opts.MaxHeight
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

func (e *Engine) encode(img image.Image, spec Spec, sourceType string) ([]byte, string, error) {
	quality := spec.Quality
	if quality <= 0 {
		if spec.Thumbnail {
			quality = e.opts.ThumbnailQuality
		} else {
			quality = e.opts.Quality
		}
	}

	encoding := spec.Encoding
	if encoding == EncodingAuto {
		encoding = EncodingWebP
	}
	if encoding == EncodingOriginal {
		encoding = encodingForSource(sourceType)
	}

	var buf bytes.Buffer
	switch encoding {
	case EncodingWebP:
		if err := webp.Encode(&buf, img, webp.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("%w: webp: %v", ErrEncode, err)
		}
		return buf.Bytes(), "image/webp", nil
	case EncodingJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", fmt.Errorf("%w: jpeg: %v", ErrEncode, err)
		}
		return buf.Bytes(), "image/jpeg", nil
	case encodingPNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("%w: png: %v", ErrEncode, err)
		}
		return buf.Bytes(), "image/png", nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", ErrEncode, encoding)
	}
}

// encodingPNG is internal: PNG output only happens when EncodingOriginal
// meets a lossless source; it is not part of the request surface.
const encodingPNG Encoding = "png"

// encodingForSource maps a source content type to the encoding used when the
// caller asked to keep the original. Lossy sources stay lossy, lossless
// sources become PNG.
func encodingForSource(sourceType string) Encoding {
	switch sourceType {
	case "image/jpeg":
		return EncodingJPEG
	case "image/webp":
		return EncodingWebP
	case "image/png", "image/gif", "image/bmp":
		return encodingPNG
	default:
		return EncodingWebP
	}
}
