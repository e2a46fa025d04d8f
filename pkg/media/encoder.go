// Package media normalizes uploaded photos before they are transferred to
// object storage. Re-encoding is an optimization: callers are expected to
// continue with the original bytes when it fails.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxWidth and DefaultMaxHeight bound the output dimensions.
	// Aspect ratio is preserved and images are never upscaled.
	DefaultMaxWidth  = 1920
	DefaultMaxHeight = 1080

	// DefaultQuality is the JPEG quality factor of the re-encoded output.
	DefaultQuality = 80
)

// Encoder re-encodes images to bounded JPEG.
type Encoder struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// NewEncoder returns an encoder with the default bounds.
func NewEncoder() *Encoder {
	return &Encoder{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
	}
}

// Encode decodes src (JPEG, PNG, GIF or WebP), scales it down to fit within
// the configured bounds and returns it re-encoded as JPEG. The returned
// content type is always "image/jpeg".
func (e *Encoder) Encode(src []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	maxW := e.MaxWidth
	if maxW <= 0 {
		maxW = DefaultMaxWidth
	}
	maxH := e.MaxHeight
	if maxH <= 0 {
		maxH = DefaultMaxHeight
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, "", fmt.Errorf("decode image: empty %s image", format)
	}
	if targetW, targetH, ok := fit(w, h, maxW, maxH); ok {
		dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// fit returns the scaled dimensions when the source exceeds the bounds.
func fit(w, h, maxW, maxH int) (int, int, bool) {
	if w <= maxW && h <= maxH {
		return w, h, false
	}
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	targetW := int(float64(w) * scale)
	targetH := int(float64(h) * scale)
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}
	return targetW, targetH, true
}
