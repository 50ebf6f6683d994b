package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/trinnux/gallery/internal/model"
	"github.com/trinnux/gallery/internal/repository"
	"github.com/trinnux/gallery/internal/storage"
	"github.com/trinnux/gallery/internal/transcode"
	"github.com/trinnux/gallery/internal/validation"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// ImagePage is one page of the public gallery.
type ImagePage struct {
	Images   []*model.Image
	Total    int
	Page     int
	PageSize int
}

// GalleryService sequences the image lifecycle: ingest then catalog on
// create, catalog then file removal on delete. Callers must have passed the
// admin check before calling any mutating method.
type GalleryService struct {
	imageRepo       repository.ImageRepository
	pipeline        *transcode.Pipeline
	storage         storage.Storage
	ordering        *OrderingService
	defaultPageSize int
	maxPageSize     int
}

func NewGalleryService(
	imageRepo repository.ImageRepository,
	pipeline *transcode.Pipeline,
	storage storage.Storage,
	ordering *OrderingService,
	defaultPageSize int,
	maxPageSize int,
) *GalleryService {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if defaultPageSize <= 0 || defaultPageSize > maxPageSize {
		defaultPageSize = min(DefaultPageSize, maxPageSize)
	}

	return &GalleryService{
		imageRepo:       imageRepo,
		pipeline:        pipeline,
		storage:         storage,
		ordering:        ordering,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// MaxUploadBytes returns the upload size ceiling of the pipeline.
func (s *GalleryService) MaxUploadBytes() int64 {
	return s.pipeline.MaxBytes()
}

// Create transcodes and stores the upload, then appends it to the catalog.
// If the catalog insert fails the stored file stays behind as an orphan.
func (s *GalleryService) Create(ctx context.Context, data []byte, contentType string, meta model.ImageMetadata) (*model.Image, error) {
	meta, err := normalizeMetadata(meta)
	if err != nil {
		return nil, err
	}

	filename, err := s.pipeline.Ingest(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	image := &model.Image{
		Filename: filename,
		Status:   model.ImageStatusActive,
	}
	if meta.Caption != nil {
		image.Caption = *meta.Caption
	}
	if meta.Category != nil {
		image.Category = *meta.Category
	}
	if meta.Featured != nil {
		image.Featured = *meta.Featured
	}

	err = s.imageRepo.Create(ctx, image)
	if err != nil {
		slog.Error("failed to catalog stored image, file orphaned", "error", err, "filename", filename)
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	slog.Info("gallery image created", "image_id", image.ID, "filename", filename, "position", image.Position)
	return image, nil
}

func (s *GalleryService) Update(ctx context.Context, id int64, meta model.ImageMetadata) (*model.Image, error) {
	meta, err := normalizeMetadata(meta)
	if err != nil {
		return nil, err
	}
	if meta.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}

	return s.imageRepo.UpdateMetadata(ctx, id, meta)
}

// Delete hides the image, then removes its file. Once the catalog write has
// committed the delete succeeds, whatever happens to the file. The removal
// is detached from ctx cancellation so a dropped client does not strand it.
func (s *GalleryService) Delete(ctx context.Context, id int64) error {
	previous, err := s.imageRepo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}

	s.removeFile(context.WithoutCancel(ctx), previous)
	return nil
}

func (s *GalleryService) removeFile(ctx context.Context, image *model.Image) {
	exists, err := s.storage.Exists(ctx, image.Filename)
	if err != nil {
		slog.Warn("failed to check file before removal", "error", err, "image_id", image.ID, "filename", image.Filename)
		return
	}
	if !exists {
		slog.Debug("file already removed", "image_id", image.ID, "filename", image.Filename)
		return
	}

	err = s.storage.Delete(ctx, image.Filename)
	if err != nil {
		slog.Warn("failed to delete file from storage", "error", err, "image_id", image.ID, "filename", image.Filename)
		return
	}

	slog.Info("gallery image removed", "image_id", image.ID, "filename", image.Filename)
}

func (s *GalleryService) Reorder(ctx context.Context, updates []model.PositionUpdate) error {
	return s.ordering.Reorder(ctx, updates)
}

// List returns a page of active images. Page defaults to 1, pageSize to the
// configured default; category "" or "All" (any case) means no filter.
func (s *GalleryService) List(ctx context.Context, category string, page, pageSize int) (*ImagePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	filter := model.ImageFilter{}
	category = validation.NormalizeText(category)
	if !strings.EqualFold(category, model.CategoryAll) {
		filter.Category = category
	}

	images, total, err := s.imageRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}

	return &ImagePage{
		Images:   images,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *GalleryService) ListForAdmin(ctx context.Context) ([]*model.Image, error) {
	return s.imageRepo.ListForAdmin(ctx)
}

func (s *GalleryService) Categories(ctx context.Context) ([]string, error) {
	return s.imageRepo.Categories(ctx)
}

// ByID returns the image in any status.
func (s *GalleryService) ByID(ctx context.Context, id int64) (*model.Image, error) {
	return s.imageRepo.ByID(ctx, id)
}

// URL returns the public address of the image file
func (s *GalleryService) URL(image *model.Image) string {
	if image == nil {
		return ""
	}
	return s.storage.URL(image.Filename)
}

func normalizeMetadata(meta model.ImageMetadata) (model.ImageMetadata, error) {
	if meta.Caption != nil {
		caption := validation.NormalizeText(*meta.Caption)
		if err := validation.ValidateCaption(caption); err != nil {
			return meta, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		meta.Caption = &caption
	}

	if meta.Category != nil {
		category := validation.NormalizeText(*meta.Category)
		if err := validation.ValidateCategory(category); err != nil {
			return meta, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		meta.Category = &category
	}

	return meta, nil
}
