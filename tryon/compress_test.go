package tryon

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"testing"
)

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"wide landscape", 2048, 1536, 1024, 1024, 768},
		{"rounds height", 3000, 1001, 1024, 1024, 342},
		{"portrait", 1500, 3000, 1024, 1024, 2048},
		{"exact width", 1024, 500, 1024, 1024, 500},
		{"narrow", 800, 600, 1024, 800, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("TargetSize(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func decodeCompressed(t *testing.T, c Compressed) (int, int) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(c.Base64)
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestCompressImageDownscalesWideImages(t *testing.T) {
	src := pngImage(t, "wide.png", 2048, 1536)

	out, err := CompressImage(src, 1024)
	if err != nil {
		t.Fatalf("CompressImage returned error: %v", err)
	}

	if out.Width != 1024 || out.Height != 768 {
		t.Fatalf("unexpected reported size: %dx%d", out.Width, out.Height)
	}
	if w, h := decodeCompressed(t, out); w != 1024 || h != 768 {
		t.Fatalf("unexpected encoded size: %dx%d", w, h)
	}
}

func TestCompressImageKeepsNarrowImages(t *testing.T) {
	src := jpegImage(t, "narrow.jpg", 800, 600)

	out, err := CompressImage(src, 1024)
	if err != nil {
		t.Fatalf("CompressImage returned error: %v", err)
	}
	if w, h := decodeCompressed(t, out); w != 800 || h != 600 {
		t.Fatalf("narrow image should keep its size, got %dx%d", w, h)
	}
}

func TestCompressImageDefaultsMaxWidth(t *testing.T) {
	src := pngImage(t, "wide.png", 2000, 1000)

	out, err := CompressImage(src, 0)
	if err != nil {
		t.Fatalf("CompressImage returned error: %v", err)
	}
	if out.Width != DefaultMaxWidth || out.Height != 512 {
		t.Fatalf("unexpected size: %dx%d", out.Width, out.Height)
	}
}

func TestCompressImageDataURI(t *testing.T) {
	c := Compressed{Base64: "abc"}
	if got := c.DataURI(); got != "data:image/jpeg;base64,abc" {
		t.Fatalf("unexpected data uri: %s", got)
	}
}

func TestCompressImageUndecodable(t *testing.T) {
	_, err := CompressImage(Image{Filename: "broken.png", ContentType: "image/png", Data: []byte("nope")}, 1024)
	assertCode(t, err, CodeImageLoad)
}

func TestCompressImageZeroHeightSurface(t *testing.T) {
	src := pngImage(t, "strip.png", 5000, 2)

	_, err := CompressImage(src, 1024)
	assertCode(t, err, CodeCanvas)
}
