package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/trinnux/gallery/internal/ctxkeys"
	"github.com/trinnux/gallery/internal/model"
	"github.com/trinnux/gallery/internal/service"
)

// multipartOverhead is the allowance for form fields and boundaries on top
// of the image bytes themselves.
const multipartOverhead = 1 << 20

type GalleryHandler struct {
	galleryService *service.GalleryService
}

func NewGalleryHandler(galleryService *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
	}
}

type imageResponse struct {
	ID        int64             `json:"id"`
	Filename  string            `json:"filename"`
	URL       string            `json:"url"`
	Caption   string            `json:"caption"`
	Category  string            `json:"category"`
	Featured  bool              `json:"featured"`
	Status    model.ImageStatus `json:"status"`
	Position  int               `json:"position"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type pageResponse struct {
	Images   []imageResponse `json:"images"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func (h *GalleryHandler) toResponse(image *model.Image) imageResponse {
	return imageResponse{
		ID:        image.ID,
		Filename:  image.Filename,
		URL:       h.galleryService.URL(image),
		Caption:   image.Caption,
		Category:  image.Category,
		Featured:  image.Featured,
		Status:    image.Status,
		Position:  image.Position,
		CreatedAt: image.CreatedAt,
		UpdatedAt: image.UpdatedAt,
	}
}

func (h *GalleryHandler) toResponses(images []*model.Image) []imageResponse {
	out := make([]imageResponse, 0, len(images))
	for _, image := range images {
		out = append(out, h.toResponse(image))
	}
	return out
}

// List serves the public gallery: ?page=&pageSize=&category=. "limit" is
// accepted in place of pageSize.
//
// @Summary List active images
// @Tags gallery
// @Produce json
// @Param page query int false "1-based page"
// @Param pageSize query int false "page size, max 100"
// @Param category query string false "category filter"
// @Success 200 {object} pageResponse
// @Router /api/gallery [get]
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := optionalInt(query.Get("page"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: page: %v", model.ErrValidation, err))
		return
	}

	rawSize := query.Get("pageSize")
	if rawSize == "" {
		rawSize = query.Get("limit")
	}
	pageSize, err := optionalInt(rawSize)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: pageSize: %v", model.ErrValidation, err))
		return
	}

	result, err := h.galleryService.List(r.Context(), query.Get("category"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Images:   h.toResponses(result.Images),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

func (h *GalleryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.galleryService.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (h *GalleryHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	images, err := h.galleryService.ListForAdmin(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]imageResponse{"images": h.toResponses(images)})
}

func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	image, err := h.galleryService.ByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(image))
}

// Create accepts a multipart form with an "image" file and optional
// caption, category and featured fields.
//
// @Summary Upload an image
// @Tags admin
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image file"
// @Success 201 {object} imageResponse
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/admin/gallery [post]
func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.galleryService.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	err := r.ParseMultipartForm(maxBytes + multipartOverhead)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", model.ErrValidation, maxBytes))
			return
		}
		writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", model.ErrValidation, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: image file is required", model.ErrValidation))
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the pipeline to reject it
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: failed to read upload: %v", model.ErrValidation, err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	meta, err := formMetadata(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	image, err := h.galleryService.Create(r.Context(), data, contentType, meta)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("gallery upload accepted",
		"image_id", image.ID,
		"original_name", header.Filename,
		"size", len(data),
		"admin", adminSubject(r),
	)
	writeJSON(w, http.StatusCreated, h.toResponse(image))
}

func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var meta model.ImageMetadata
	err = json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&meta)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", model.ErrValidation, err))
		return
	}

	image, err := h.galleryService.Update(r.Context(), id, meta)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(image))
}

// @Summary Hide an image and remove its file
// @Tags admin
// @Security BearerAuth
// @Param id path int true "image id"
// @Router /api/admin/gallery/{id} [delete]
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.galleryService.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("gallery image deleted", "image_id", id, "admin", adminSubject(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// @Summary Reorder images
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Router /api/admin/gallery/reorder [put]
func (h *GalleryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: failed to read body: %v", model.ErrValidation, err))
		return
	}

	updates, err := service.ParseReorderPayload(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.galleryService.Reorder(r.Context(), updates)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": len(updates)})
}

func formMetadata(r *http.Request) (model.ImageMetadata, error) {
	var meta model.ImageMetadata

	if values, ok := r.MultipartForm.Value["caption"]; ok && len(values) > 0 {
		meta.Caption = &values[0]
	}
	if values, ok := r.MultipartForm.Value["category"]; ok && len(values) > 0 {
		meta.Category = &values[0]
	}
	if values, ok := r.MultipartForm.Value["featured"]; ok && len(values) > 0 {
		featured, err := parseFormBool(values[0])
		if err != nil {
			return meta, fmt.Errorf("%w: featured: %v", model.ErrValidation, err)
		}
		meta.Featured = &featured
	}

	return meta, nil
}

// parseFormBool accepts what HTML checkboxes and JS clients send.
func parseFormBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "off", "no":
		return false, nil
	case "1", "true", "on", "yes":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	return n, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid image id %q", model.ErrValidation, r.PathValue("id"))
	}
	return id, nil
}

func adminSubject(r *http.Request) string {
	if admin := ctxkeys.Admin(r.Context()); admin != nil {
		return admin.Subject
	}
	return ""
}
