package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// maxUploadBody caps the multipart body: two images at the limit plus form overhead.
const maxUploadBody = 2*(tryon.MaxImageSize+1<<20) + 1<<20

// VirtualTryOnHandler handles POST /try-on with multipart fields model_image, garment_image
// and category.
func (h *Handler) VirtualTryOnHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Virtual Try-On API]")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondCodedError(w, &logMessageBuilder, "Upload is larger than 10MB per image", string(tryon.CodeFileTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		utils.RespondCodedError(w, &logMessageBuilder, fmt.Sprintf("Invalid multipart form: %v", err), string(tryon.CodeInvalidRequest), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	model, err := formImage(r, "model_image")
	if err != nil {
		utils.RespondCodedError(w, &logMessageBuilder, err.Error(), string(tryon.CodeInvalidRequest), http.StatusBadRequest)
		return
	}
	garment, err := formImage(r, "garment_image")
	if err != nil {
		utils.RespondCodedError(w, &logMessageBuilder, err.Error(), string(tryon.CodeInvalidRequest), http.StatusBadRequest)
		return
	}
	category := models.Category(strings.TrimSpace(r.FormValue("category")))
	if category == "" {
		category = models.CategoryTop
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Try-On Request: model=%s (%d bytes), garment=%s (%d bytes), category=%s",
		model.Filename, model.Size(), garment.Filename, garment.Size(), category))

	// The job keeps running if the client goes away, bounded by RunTimeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.runTimeout())
	defer cancel()

	res, err := h.Runner.TryOnClothing(ctx, model, garment, category)
	if err != nil {
		te := tryon.AsError(err)
		utils.RespondCodedError(w, &logMessageBuilder, te.Message, string(te.Code), StatusForCode(te.Code))
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Try-on %s completed: %s", res.RecordID, res.Image))
	utils.RespondJSON(w, http.StatusOK, res)
}

func formImage(r *http.Request, field string) (tryon.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return tryon.Image{}, fmt.Errorf("%s is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return tryon.Image{}, fmt.Errorf("could not read %s: %v", field, err)
	}
	return tryon.Image{
		Filename:    header.Filename,
		ContentType: partContentType(header, data),
		Data:        data,
	}, nil
}

// partContentType trusts the declared part type and sniffs the bytes when it is missing.
func partContentType(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}
