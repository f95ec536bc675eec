package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// GalleryItem is one completed try-on with loadable image URLs.
type GalleryItem struct {
	ID              string          `json:"id"`
	Category        models.Category `json:"category"`
	ImageURL        string          `json:"image_url"`
	ModelImageURL   string          `json:"model_image_url"`
	GarmentImageURL string          `json:"garment_image_url"`
	CreatedAt       time.Time       `json:"created_at"`
}

// GalleryResponse represents the response structure for the gallery API
type GalleryResponse struct {
	Images      []GalleryItem `json:"images"`
	Total       int64         `json:"total"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
}

// GalleryHandler handles fetching the user's generated images
func (h *Handler) GalleryHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Gallery API]")

	// 1. Resolve the caller
	session, err := h.Sessions.CurrentSession(r.Context())
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Invalid session: %v", err))
		utils.RespondCodedError(w, nil, "Unauthorized", string(tryon.CodeAuth), http.StatusUnauthorized)
		return
	}
	if session == nil {
		utils.RespondCodedError(w, &logMessageBuilder, "Unauthorized", string(tryon.CodeAuthRequired), http.StatusUnauthorized)
		return
	}

	// 2. Parse Pagination Parameters
	page := 1
	limit := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	// 3. Query records
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	tryOns, total, err := h.TryOns.ListByUser(ctx, session.UserID, models.TryOnStatusCompleted, page, limit)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to list try-ons: %v", err))
		utils.RespondCodedError(w, nil, "Failed to fetch data", string(tryon.CodeDatabase), http.StatusInternalServerError)
		return
	}

	// 4. Resolve image URLs: results are public, inputs are presigned
	images := make([]GalleryItem, 0, len(tryOns))
	for _, rec := range tryOns {
		item := GalleryItem{
			ID:              rec.ID,
			Category:        rec.Category,
			ModelImageURL:   utils.ResolveImageRef(ctx, h.Images, h.Buckets.Model, rec.ModelImagePath),
			GarmentImageURL: utils.ResolveImageRef(ctx, h.Images, h.Buckets.Garment, rec.GarmentImagePath),
			CreatedAt:       rec.CreatedAt,
		}
		if rec.ResultImagePath != "" {
			item.ImageURL = h.Images.PublicURL(h.Buckets.Result, rec.ResultImagePath)
		}
		images = append(images, item)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Returned %d of %d try-ons for %s", len(images), total, session.UserID))

	// 5. Return Response
	utils.RespondJSON(w, http.StatusOK, GalleryResponse{
		Images:      images,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	})
}
