package tryon

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder with image.Decode
)

const (
	// DefaultMaxWidth bounds the width of images sent to the synthesis API.
	DefaultMaxWidth = 1024
	jpegQuality     = 80
)

// Compressed is the base64 JPEG payload produced by CompressImage.
type Compressed struct {
	Base64 string
	Width  int
	Height int
}

// DataURI returns the payload as a data URI accepted by the synthesis API.
func (c Compressed) DataURI() string {
	return "data:image/jpeg;base64," + c.Base64
}

// TargetSize returns the dimensions an image of w x h is scaled to so that it fits maxWidth.
// Narrower images keep their size.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	return maxWidth, int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
}

// CompressImage decodes img, downscales it to at most maxWidth pixels wide keeping the aspect
// ratio and re-encodes it as a quality 80 JPEG.
func CompressImage(img Image, maxWidth int) (Compressed, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Compressed{}, NewError(CodeImageLoad, fmt.Sprintf("could not load image %q", img.Filename), err)
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxWidth)
	if w < 1 || h < 1 {
		return Compressed{}, NewError(CodeCanvas, fmt.Sprintf("cannot create a %dx%d image surface", w, h), nil)
	}

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		out = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return Compressed{}, NewError(CodeCanvas, "could not encode image as JPEG", err)
	}

	return Compressed{
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  w,
		Height: h,
	}, nil
}
