package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestEncodeBoundsLargeImage(t *testing.T) {
	enc := NewEncoder()
	out, contentType, err := enc.Encode(pngBytes(t, 4000, 3000))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("content type = %q, want image/jpeg", contentType)
	}
	w, h := decodeDims(t, out)
	if w > DefaultMaxWidth || h > DefaultMaxHeight {
		t.Fatalf("output %dx%d exceeds %dx%d", w, h, DefaultMaxWidth, DefaultMaxHeight)
	}
	// 4:3 source limited by height: 1440x1080.
	if h != 1080 {
		t.Fatalf("output height = %d, want 1080", h)
	}
	if w != 1440 {
		t.Fatalf("output width = %d, want 1440", w)
	}
}

func TestEncodeKeepsSmallImageDimensions(t *testing.T) {
	enc := NewEncoder()
	out, _, err := enc.Encode(pngBytes(t, 640, 480))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 640 || h != 480 {
		t.Fatalf("small image was resized to %dx%d", w, h)
	}
}

func TestEncodeRejectsUndecodableInput(t *testing.T) {
	enc := NewEncoder()
	if _, _, err := enc.Encode([]byte("not an image at all")); err == nil {
		t.Fatalf("expected decode error for garbage input")
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
		resized      bool
	}{
		{"wide", 3840, 1080, 1920, 540, true},
		{"tall", 1080, 3840, 303, 1080, true},
		{"inside", 1920, 1080, 1920, 1080, false},
		{"tiny", 1, 1, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, resized := fit(tt.w, tt.h, DefaultMaxWidth, DefaultMaxHeight)
			if resized != tt.resized {
				t.Fatalf("resized = %v, want %v", resized, tt.resized)
			}
			if resized && (w != tt.wantW || h != tt.wantH) {
				t.Fatalf("fit = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
