package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FetchImage loads an image from an http(s) URL or a local path and returns its bytes, a file
// name and the detected MIME type.
func FetchImage(ctx context.Context, src string) ([]byte, string, string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return downloadImage(ctx, src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, "", "", fmt.Errorf("read %s: %w", src, err)
	}
	name := filepath.Base(src)
	return data, name, detectType(name, "", data), nil
}

func downloadImage(ctx context.Context, url string) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (macOS) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("bad status: %s", resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", err
	}

	filename := filepath.Base(req.URL.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "image"
	}
	return bodyBytes, filename, detectType(filename, resp.Header.Get("Content-Type"), bodyBytes), nil
}

// detectType prefers the declared header, then the file extension, then content sniffing.
func detectType(filename, header string, data []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
