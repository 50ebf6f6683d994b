package transcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/trinnux/gallery/internal/model"
	"github.com/trinnux/gallery/internal/storage/storagetest"
)

func pngBytes(t *testing.T, width, height int, fill color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("downscales wide images", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		p := NewPipeline(store, Options{})

		filename, err := p.Ingest(ctx, pngBytes(t, 2000, 1000, color.NRGBA{R: 200, A: 255}), "image/png")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if !strings.HasSuffix(filename, Extension) {
			t.Errorf("filename = %s, want %s suffix", filename, Extension)
		}

		data, ok := store.Get(filename)
		if !ok {
			t.Fatal("file was not stored")
		}

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("stored file does not decode: %v", err)
		}
		if format != "jpeg" {
			t.Errorf("format = %s, want jpeg", format)
		}
		if cfg.Width != 1600 || cfg.Height != 800 {
			t.Errorf("size = %dx%d, want 1600x800", cfg.Width, cfg.Height)
		}
	})

	t.Run("never enlarges", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		p := NewPipeline(store, Options{})

		filename, err := p.Ingest(ctx, pngBytes(t, 40, 30, color.NRGBA{G: 100, A: 255}), "image/png")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}

		data, _ := store.Get(filename)
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("DecodeConfig failed: %v", err)
		}
		if cfg.Width != 40 || cfg.Height != 30 {
			t.Errorf("size = %dx%d, want 40x30", cfg.Width, cfg.Height)
		}
	})

	t.Run("flattens transparency onto white", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		p := NewPipeline(store, Options{})

		filename, err := p.Ingest(ctx, pngBytes(t, 16, 16, color.NRGBA{}), "image/png")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}

		data, _ := store.Get(filename)
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("jpeg.Decode failed: %v", err)
		}
		r, g, b, _ := img.At(8, 8).RGBA()
		if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
			t.Errorf("pixel = (%d,%d,%d), want near white", r>>8, g>>8, b>>8)
		}
	})

	t.Run("rejects non-image content type", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		p := NewPipeline(store, Options{})

		_, err := p.Ingest(ctx, []byte("0123456789"), "text/plain")
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}
		if len(store.Names()) != 0 {
			t.Errorf("store has %d files, want 0", len(store.Names()))
		}
	})

	t.Run("rejects oversize before decoding", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		p := NewPipeline(store, Options{})

		// Not a valid image: a decode attempt would yield ErrTranscode instead
		data := make([]byte, 6<<20)
		_, err := p.Ingest(ctx, data, "image/jpeg")
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}
		if errors.Is(err, model.ErrTranscode) {
			t.Error("oversize upload reached the decoder")
		}
		if len(store.Names()) != 0 {
			t.Errorf("store has %d files, want 0", len(store.Names()))
		}
	})

	t.Run("rejects empty upload", func(t *testing.T) {
		p := NewPipeline(storagetest.NewMemoryStorage(), Options{})

		_, err := p.Ingest(ctx, nil, "image/png")
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("corrupt image writes nothing", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		p := NewPipeline(store, Options{})

		data := pngBytes(t, 10, 10, color.Black)
		_, err := p.Ingest(ctx, data[:len(data)/2], "image/png")
		if !errors.Is(err, model.ErrTranscode) {
			t.Fatalf("error = %v, want ErrTranscode", err)
		}
		if len(store.Names()) != 0 {
			t.Errorf("store has %d files, want 0", len(store.Names()))
		}
	})

	t.Run("rejects oversized dimensions", func(t *testing.T) {
		p := NewPipeline(storagetest.NewMemoryStorage(), Options{MaxPixels: 100})

		_, err := p.Ingest(ctx, pngBytes(t, 20, 20, color.Black), "image/png")
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		store := storagetest.NewMemoryStorage()
		store.SaveErr = errors.New("disk full")
		p := NewPipeline(store, Options{})

		_, err := p.Ingest(ctx, pngBytes(t, 10, 10, color.Black), "image/png")
		if !errors.Is(err, model.ErrStorage) {
			t.Fatalf("error = %v, want ErrStorage", err)
		}
	})
}

func TestValidate(t *testing.T) {
	p := NewPipeline(storagetest.NewMemoryStorage(), Options{})

	tests := []struct {
		name        string
		size        int64
		contentType string
		wantErr     bool
	}{
		{"jpeg", 1024, "image/jpeg", false},
		{"webp with params", 1024, "image/webp; charset=binary", false},
		{"exactly at limit", 5 << 20, "image/png", false},
		{"one byte over", 5<<20 + 1, "image/png", true},
		{"text", 10, "text/plain", true},
		{"missing type", 10, "", true},
		{"image prefix lookalike", 10, "imagex/png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.size, tt.contentType)
			if tt.wantErr && !errors.Is(err, model.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewFilenameUnique(t *testing.T) {
	p := NewPipeline(storagetest.NewMemoryStorage(), Options{})

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := p.NewFilename()
			mu.Lock()
			defer mu.Unlock()
			if seen[name] {
				t.Errorf("duplicate filename %s", name)
			}
			seen[name] = true
		}()
	}
	wg.Wait()
}
