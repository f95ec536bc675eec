package utils

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondJSON sends a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers are already sent, nothing left to tell the client
		slog.Error("encoding JSON response", "err", err)
	}
}

// RespondError sends a JSON error response and adds the message to the request log.
func RespondError(w http.ResponseWriter, logger *strings.Builder, message string, status int) {
	RespondCodedError(w, logger, message, "", status)
}

// RespondCodedError is RespondError with a machine readable code in the body.
func RespondCodedError(w http.ResponseWriter, logger *strings.Builder, message, code string, status int) {
	if logger != nil {
		entry := message
		if code != "" {
			entry = code + ": " + message
		}
		AddToLogMessage(logger, entry)
	} else {
		slog.Warn("request failed", "code", code, "error", message)
	}
	RespondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// Presigner signs object keys of private buckets.
type Presigner interface {
	PresignedURL(ctx context.Context, bucket, key string) (string, error)
}

// ResolveImageRef turns a stored image reference into a URL a browser can load.
// http(s) references are kept as is. Keys are presigned and fall back to the key on failure.
func ResolveImageRef(ctx context.Context, p Presigner, bucket, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if url, err := p.PresignedURL(ctx, bucket, ref); err == nil {
		return url
	}
	return ref
}

// LatencyMiddleware logs the duration of each request
func LatencyMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request served", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

// CORSMiddleware allows browser clients from any origin.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
