// Package transcode turns uploaded images into the single canonical format
// the gallery serves: a width-bounded JPEG written once to the content store.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime"
	"strings"
	"time"

	// Registered decoders
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/trinnux/gallery/internal/model"
	"github.com/trinnux/gallery/internal/storage"
)

const (
	DefaultMaxBytes  = 5 << 20 // 5MB
	DefaultMaxWidth  = 1600
	DefaultQuality   = 80
	DefaultMaxPixels = 50_000_000

	// Extension of every stored file
	Extension = ".jpg"
)

type Options struct {
	MaxBytes  int64
	MaxWidth  int
	Quality   int
	MaxPixels int
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

type Pipeline struct {
	storage storage.Storage
	opts    Options
	now     func() time.Time
}

func NewPipeline(storage storage.Storage, opts Options) *Pipeline {
	return &Pipeline{
		storage: storage,
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// MaxBytes returns the upload size ceiling.
func (p *Pipeline) MaxBytes() int64 {
	return p.opts.MaxBytes
}

// Ingest validates and re-encodes data, stores the result under a fresh
// name and returns that name. The store is written only after a successful
// encode, so a failed ingest leaves nothing behind.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, contentType string) (string, error) {
	err := p.Validate(int64(len(data)), contentType)
	if err != nil {
		return "", err
	}

	encoded, err := p.Transcode(data)
	if err != nil {
		return "", err
	}

	filename := p.NewFilename()
	err = p.storage.Save(ctx, filename, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: failed to save file: %v", model.ErrStorage, err)
	}

	return filename, nil
}

// Validate checks size and declared content type without touching the bytes.
func (p *Pipeline) Validate(size int64, contentType string) error {
	if size == 0 {
		return fmt.Errorf("%w: empty upload", model.ErrValidation)
	}

	if size > p.opts.MaxBytes {
		maxMB := p.opts.MaxBytes / (1 << 20)
		return fmt.Errorf("%w: file too large: maximum size is %d MB", model.ErrValidation, maxMB)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("%w: only image files allowed (got %q)", model.ErrValidation, contentType)
	}

	return nil
}

// Transcode decodes data and re-encodes it as a JPEG no wider than MaxWidth.
func (p *Pipeline) Transcode(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported or corrupt image: %v", model.ErrTranscode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", model.ErrTranscode)
	}
	if cfg.Width*cfg.Height > p.opts.MaxPixels {
		return nil, fmt.Errorf("%w: image dimensions %dx%d exceed limit", model.ErrValidation, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", model.ErrTranscode, err)
	}

	dst := p.resize(src)

	var buf bytes.Buffer
	err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.opts.Quality})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode image: %v", model.ErrTranscode, err)
	}

	return buf.Bytes(), nil
}

// resize scales src down to MaxWidth (never up) onto a white canvas, since
// JPEG has no alpha channel.
func (p *Pipeline) resize(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > p.opts.MaxWidth {
		height = max(1, height*p.opts.MaxWidth/width)
		width = p.opts.MaxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	return dst
}

// NewFilename returns "<unix millis>-<uuid>.jpg". The random suffix keeps
// concurrent ingests in the same millisecond apart.
func (p *Pipeline) NewFilename() string {
	return fmt.Sprintf("%d-%s%s", p.now().UnixMilli(), uuid.NewString(), Extension)
}
