package transform_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"tosho/internal/transform"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestApplyIdentityPassthrough(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 100, 150)

	out, contentType, err := engine.Apply(raw, transform.Spec{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatal("identity spec must return input bytes unchanged")
	}
	if contentType != "image/png" {
		t.Fatalf("content type = %s, want image/png", contentType)
	}
}

func TestApplyQualityAloneForcesReencode(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 100, 150)

	out, contentType, err := engine.Apply(raw, transform.Spec{Quality: 50})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if bytes.Equal(out, raw) {
		t.Fatal("explicit quality must not be dropped as identity passthrough")
	}
	if contentType != "image/webp" {
		t.Fatalf("content type = %s, want image/webp (auto default)", contentType)
	}
	w, h := decodeDims(t, out)
	if w != 100 || h != 150 {
		t.Fatalf("output = %dx%d, want source geometry 100x150", w, h)
	}
}

func TestApplyNeverUpscales(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 400, 300)

	out, _, err := engine.Apply(raw, transform.Spec{MaxWidth: 5000, MaxHeight: 5000, Encoding: transform.EncodingJPEG})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, h := decodeDims(t, out)
	if w > 400 || h > 300 {
		t.Fatalf("output %dx%d exceeds source 400x300", w, h)
	}
}

func TestApplyResizeFitsBounds(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 1000, 1500)

	out, contentType, err := engine.Apply(raw, transform.Spec{MaxWidth: 200, MaxHeight: 200})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if contentType != "image/webp" {
		t.Fatalf("content type = %s, want image/webp (auto default)", contentType)
	}
	if len(out) < 12 || string(out[:4]) != "RIFF" || string(out[8:12]) != "WEBP" {
		t.Fatal("output does not carry a WebP signature")
	}
}

func TestApplyThumbnailGeometry(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 1200, 900)

	out, _, err := engine.Apply(raw, transform.Spec{Thumbnail: true, Encoding: transform.EncodingJPEG})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 300 || h != 400 {
		t.Fatalf("thumbnail = %dx%d, want 300x400", w, h)
	}
}

func TestApplyThumbnailSmallSourceKeepsAspect(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 150, 150)

	out, _, err := engine.Apply(raw, transform.Spec{Thumbnail: true, Encoding: transform.EncodingJPEG})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, h := decodeDims(t, out)
	if w > 150 || h > 150 {
		t.Fatalf("thumbnail %dx%d upscaled a 150x150 source", w, h)
	}
	// Box aspect is 3:4; allow a pixel of rounding.
	want := float64(w) * 4.0 / 3.0
	if diff := float64(h) - want; diff > 1.5 || diff < -1.5 {
		t.Fatalf("thumbnail %dx%d does not keep 3:4 aspect", w, h)
	}
}

func TestApplyCapsAtEngineCeiling(t *testing.T) {
	engine := transform.NewEngine(transform.Options{MaxWidth: 100, MaxHeight: 100})
	raw := pngBytes(t, 400, 400)

	out, _, err := engine.Apply(raw, transform.Spec{MaxWidth: 999, MaxHeight: 999, Encoding: transform.EncodingJPEG})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, h := decodeDims(t, out)
	if w > 100 || h > 100 {
		t.Fatalf("output %dx%d exceeds engine ceiling 100x100", w, h)
	}
}

func TestApplyDeterministic(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 600, 800)
	spec := transform.Spec{MaxWidth: 200, MaxHeight: 300, Encoding: transform.EncodingJPEG}

	first, _, err := engine.Apply(raw, spec)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	second, _, err := engine.Apply(raw, spec)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same input and spec produced different bytes")
	}
}

func TestApplyDecodeError(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})

	_, _, err := engine.Apply([]byte("this is not an image"), transform.Spec{MaxWidth: 100})
	if !errors.Is(err, transform.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestApplyOriginalEncodingKeepsJPEG(t *testing.T) {
	engine := transform.NewEngine(transform.Options{})
	raw := pngBytes(t, 500, 500)

	// First produce a JPEG source, then ask for original encoding on it.
	jpegSource, _, err := engine.Apply(raw, transform.Spec{MaxWidth: 400, MaxHeight: 400, Encoding: transform.EncodingJPEG})
	if err != nil {
		t.Fatalf("Apply jpeg: %v", err)
	}

	out, contentType, err := engine.Apply(jpegSource, transform.Spec{MaxWidth: 200, MaxHeight: 200, Encoding: transform.EncodingOriginal})
	if err != nil {
		t.Fatalf("Apply original: %v", err)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("content type = %s, want image/jpeg", contentType)
	}
	if len(out) < 3 || out[0] != 0xFF || out[1] != 0xD8 {
		t.Fatal("output does not carry a JPEG signature")
	}
}

func TestSignatureReflectsOptions(t *testing.T) {
	a := transform.NewEngine(transform.Options{})
	b := transform.NewEngine(transform.Options{Quality: 60})
	if a.Signature() == b.Signature() {
		t.Fatal("engines with different quality must have different signatures")
	}
	if a.Signature() != transform.NewEngine(transform.Options{}).Signature() {
		t.Fatal("same options must yield the same signature")
	}
}
