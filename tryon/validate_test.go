package tryon

import (
	"testing"

	"github.com/raushankrgupta/fitly-tryon/models"
)

func TestValidateImages(t *testing.T) {
	ok := Image{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("x")}
	big := Image{Filename: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, MaxImageSize+1)}
	limit := Image{Filename: "limit.png", ContentType: "image/png", Data: make([]byte, MaxImageSize)}
	gif := Image{Filename: "a.gif", ContentType: "image/gif", Data: []byte("x")}
	webp := Image{Filename: "a.webp", ContentType: "image/webp", Data: []byte("x")}
	bigGif := Image{Filename: "big.gif", ContentType: "image/gif", Data: make([]byte, MaxImageSize+1)}

	tests := []struct {
		name       string
		model      Image
		garment    Image
		wantCode   Code
		wantDetail string
	}{
		{"both valid", ok, webp, "", ""},
		{"exactly 10MiB", limit, ok, "", ""},
		{"model too large", big, ok, CodeFileTooLarge, "model"},
		{"garment too large", ok, big, CodeFileTooLarge, "garment"},
		{"model bad type", gif, ok, CodeInvalidFileType, "model"},
		{"garment bad type", ok, gif, CodeInvalidFileType, "garment"},
		{"size checked before type", gif, bigGif, CodeFileTooLarge, "garment"},
		{"missing type", ok, Image{Data: []byte("x")}, CodeInvalidFileType, "garment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImages(tt.model, tt.garment)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			te := assertCode(t, err, tt.wantCode)
			if te.Detail != tt.wantDetail {
				t.Fatalf("unexpected detail: got %q want %q", te.Detail, tt.wantDetail)
			}
		})
	}
}

func TestValidateImagesCaseInsensitiveType(t *testing.T) {
	img := Image{ContentType: "IMAGE/PNG", Data: []byte("x")}
	if err := ValidateImages(img, img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAllowedMimeTypesIsACopy(t *testing.T) {
	types := AllowedMimeTypes()
	types[0] = "image/gif"
	if !mimeAllowed("image/jpeg") {
		t.Fatal("mutating the returned slice must not change the allow list")
	}
}

func TestAPICategory(t *testing.T) {
	tests := []struct {
		in   models.Category
		want string
	}{
		{models.CategoryTop, "tops"},
		{models.CategoryBottom, "bottoms"},
		{models.CategoryFullBody, "one-pieces"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := APICategory(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("APICategory(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	if _, err := APICategory("shoes"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
