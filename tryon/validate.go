package tryon

import (
	"fmt"
	"strings"
)

// MaxImageSize is the largest accepted upload, 10 MiB.
const MaxImageSize = 10 << 20

var allowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Image is an uploaded image payload.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (img Image) Size() int64 { return int64(len(img.Data)) }

// AllowedMimeTypes returns the MIME types accepted for model and garment images.
func AllowedMimeTypes() []string {
	out := make([]string, len(allowedMimeTypes))
	copy(out, allowedMimeTypes)
	return out
}

func mimeAllowed(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, t := range allowedMimeTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// ValidateImages checks both payloads before any network call. Sizes are checked before types.
func ValidateImages(model, garment Image) error {
	for _, in := range []struct {
		role string
		img  Image
	}{{"model", model}, {"garment", garment}} {
		if in.img.Size() > MaxImageSize {
			e := NewError(CodeFileTooLarge, fmt.Sprintf("%s image is larger than 10MB", in.role), nil)
			e.Detail = in.role
			return e
		}
	}

	for _, in := range []struct {
		role string
		img  Image
	}{{"model", model}, {"garment", garment}} {
		if !mimeAllowed(in.img.ContentType) {
			e := NewError(CodeInvalidFileType,
				fmt.Sprintf("unsupported %s image type %q (supported: %s)", in.role, in.img.ContentType, strings.Join(allowedMimeTypes, ", ")), nil)
			e.Detail = in.role
			return e
		}
	}
	return nil
}
