// Package api serves the try-on service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/repository"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// TryOnRunner runs one try-on. *tryon.Orchestrator implements it.
type TryOnRunner interface {
	TryOnClothing(ctx context.Context, model, garment tryon.Image, category models.Category) (*tryon.Result, error)
}

// TryOnLister pages through a user's try-on records.
type TryOnLister interface {
	ListByUser(ctx context.Context, userID string, status models.TryOnStatus, page, limit int) ([]models.TryOn, int64, error)
}

// ImageResolver turns stored object keys into URLs.
type ImageResolver interface {
	utils.Presigner
	PublicURL(bucket, key string) string
}

// Handler holds the dependencies of every route.
type Handler struct {
	Sessions tryon.SessionProvider
	Runner   TryOnRunner
	TryOns   TryOnLister
	Users    repository.UserRepository
	Images   ImageResolver
	Buckets  tryon.Buckets
	Logger   *slog.Logger

	JWTSecret string
	TokenTTL  time.Duration
	// RunTimeout bounds a try-on once it is detached from the client connection.
	RunTimeout time.Duration
}

func (h *Handler) runTimeout() time.Duration {
	if h.RunTimeout > 0 {
		return h.RunTimeout
	}
	return 5 * time.Minute
}

// HealthHandler reports that the process is up.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusForCode maps a try-on error code to the HTTP status returned to clients.
func StatusForCode(code tryon.Code) int {
	switch code {
	case tryon.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case tryon.CodeInvalidFileType:
		return http.StatusUnsupportedMediaType
	case tryon.CodeAuth, tryon.CodeAuthRequired:
		return http.StatusUnauthorized
	case tryon.CodeInvalidRequest:
		return http.StatusBadRequest
	case tryon.CodeRateLimit:
		return http.StatusTooManyRequests
	case tryon.CodeTimeout:
		return http.StatusGatewayTimeout
	case tryon.CodeNetwork, tryon.CodeAPI, tryon.CodeInvalidResponse, tryon.CodeNoImageResult, tryon.CodeProcessFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
