package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/raushankrgupta/fitly-tryon/utils"
)

// NewRouter registers every route of h. CORS wraps the router so preflight requests are
// answered even though no route accepts OPTIONS.
func NewRouter(h *Handler) http.Handler {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter()
	router.Use(utils.LatencyMiddleware(logger))
	router.Use(AuthMiddleware)

	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/auth/signup", h.SignupHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost)

	router.HandleFunc("/try-on", h.VirtualTryOnHandler).Methods(http.MethodPost)
	router.HandleFunc("/gallery", h.GalleryHandler).Methods(http.MethodGet)

	return utils.CORSMiddleware(router)
}
