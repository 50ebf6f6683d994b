package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/trinnux/gallery/internal/db/dbtest"
	"github.com/trinnux/gallery/internal/repository"
	"github.com/trinnux/gallery/internal/service"
	"github.com/trinnux/gallery/internal/storage/storagetest"
	"github.com/trinnux/gallery/internal/transcode"
)

type testEnv struct {
	mux   *http.ServeMux
	store *storagetest.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := repository.NewImageRepository(dbtest.Open(t))
	store := storagetest.NewMemoryStorage()
	pipeline := transcode.NewPipeline(store, transcode.Options{})
	gallery := service.NewGalleryService(repo, pipeline, store, service.NewOrderingService(repo), 12, 100)
	h := NewGalleryHandler(gallery)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/gallery", h.List)
	mux.HandleFunc("GET /api/gallery/categories", h.Categories)
	mux.HandleFunc("GET /api/admin/gallery", h.AdminList)
	mux.HandleFunc("GET /api/admin/gallery/{id}", h.Get)
	mux.HandleFunc("POST /api/admin/gallery", h.Create)
	mux.HandleFunc("PUT /api/admin/gallery/reorder", h.Reorder)
	mux.HandleFunc("PUT /api/admin/gallery/{id}", h.Update)
	mux.HandleFunc("DELETE /api/admin/gallery/{id}", h.Delete)

	return &testEnv{mux: mux, store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, data []byte, contentType string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if data != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart failed: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("part.Write failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/gallery", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) upload(t *testing.T, fields map[string]string) imageResponse {
	t.Helper()
	rec := e.do(t, uploadRequest(t, pngBytes(t), "image/png", fields))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[imageResponse](t, rec)
}

func TestGalleryHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		env := newTestEnv(t)

		got := env.upload(t, map[string]string{"caption": " Opening ", "category": "Events", "featured": "true"})

		if got.ID == 0 || got.Position != 1 {
			t.Errorf("id/position = %d/%d, want assigned id and position 1", got.ID, got.Position)
		}
		if got.Caption != "Opening" || got.Category != "Events" || !got.Featured {
			t.Errorf("metadata = %+v", got)
		}
		if !strings.HasSuffix(got.Filename, ".jpg") || got.URL != "/uploads/gallery/"+got.Filename {
			t.Errorf("filename/url = %s %s", got.Filename, got.URL)
		}
		if _, ok := env.store.Get(got.Filename); !ok {
			t.Error("file not stored")
		}
	})

	tests := []struct {
		name        string
		data        []byte
		contentType string
		fields      map[string]string
		wantStatus  int
	}{
		{"not an image", []byte("hello"), "text/plain", nil, http.StatusBadRequest},
		{"missing file", nil, "", map[string]string{"caption": "x"}, http.StatusBadRequest},
		{"corrupt image", []byte("\x89PNG\r\n\x1a\ngarbage"), "image/png", nil, http.StatusUnprocessableEntity},
		{"too large", make([]byte, 6<<20), "image/jpeg", nil, http.StatusBadRequest},
		{"bad featured", nil, "image/png", map[string]string{"featured": "maybe"}, http.StatusBadRequest},
		{"reserved category", nil, "image/png", map[string]string{"category": "All"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			data := tt.data
			if data == nil && tt.contentType != "" {
				data = pngBytes(t)
			}

			rec := env.do(t, uploadRequest(t, data, tt.contentType, tt.fields))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if decode[map[string]string](t, rec)["error"] == "" {
				t.Error("missing error message")
			}
			if len(env.store.Names()) != 0 {
				t.Error("file stored for rejected upload")
			}
		})
	}

	t.Run("storage failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.SaveErr = errors.New("disk full")

		rec := env.do(t, uploadRequest(t, pngBytes(t), "image/png", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if msg := decode[map[string]string](t, rec)["error"]; strings.Contains(msg, "disk full") {
			t.Errorf("internal error leaked: %q", msg)
		}
	})
}

func TestGalleryHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, map[string]string{"category": "Events"})
	env.upload(t, map[string]string{"category": "Office"})
	featured := env.upload(t, map[string]string{"category": "Events", "featured": "on"})

	t.Run("featured first", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))
		page := decode[pageResponse](t, rec)

		if page.Total != 3 || page.Page != 1 || page.PageSize != 12 {
			t.Errorf("page = %d/%d total %d", page.Page, page.PageSize, page.Total)
		}
		if len(page.Images) != 3 || page.Images[0].ID != featured.ID {
			t.Errorf("first image = %+v, want the featured one", page.Images)
		}
	})

	t.Run("category and limit alias", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery?category=Events&limit=1&page=2", nil))
		page := decode[pageResponse](t, rec)

		if page.Total != 2 || page.PageSize != 1 || len(page.Images) != 1 {
			t.Errorf("got %d images, total %d, pageSize %d", len(page.Images), page.Total, page.PageSize)
		}
		if page.Images[0].Category != "Events" {
			t.Errorf("category = %s", page.Images[0].Category)
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery?page=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("categories", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/categories", nil))
		got := decode[map[string][]string](t, rec)["categories"]
		if len(got) != 2 || got[0] != "Events" || got[1] != "Office" {
			t.Errorf("categories = %v", got)
		}
	})
}

func TestGalleryHandler_UpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	img := env.upload(t, nil)
	path := fmt.Sprintf("/api/admin/gallery/%d", img.ID)

	t.Run("update", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"caption":"New caption","featured":true}`))
		rec := env.do(t, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		got := decode[imageResponse](t, rec)
		if got.Caption != "New caption" || !got.Featured {
			t.Errorf("updated = %+v", got)
		}
	})

	updateErrors := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"empty edit", path, `{}`, http.StatusBadRequest},
		{"bad json", path, `{"caption":`, http.StatusBadRequest},
		{"wrong type", path, `{"featured":"yes"}`, http.StatusBadRequest},
		{"unknown id", "/api/admin/gallery/9999", `{"caption":"x"}`, http.StatusNotFound},
		{"invalid id", "/api/admin/gallery/abc", `{"caption":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range updateErrors {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	t.Run("delete twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := env.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("delete #%d status = %d", i+1, rec.Code)
			}
		}

		rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if got := decode[imageResponse](t, rec); got.Status != "hidden" {
			t.Errorf("status = %s, want hidden", got.Status)
		}

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/gallery", nil))
		if got := decode[map[string][]imageResponse](t, rec)["images"]; len(got) != 0 {
			t.Errorf("admin list has %d images, want 0", len(got))
		}
	})

	t.Run("delete unknown", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/admin/gallery/9999", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestGalleryHandler_Reorder(t *testing.T) {
	env := newTestEnv(t)
	a := env.upload(t, nil)
	b := env.upload(t, nil)

	body := fmt.Sprintf(`{"order":[{"id":%d,"position":1},{"id":%d,"position":2}]}`, b.ID, a.ID)
	rec := env.do(t, httptest.NewRequest(http.MethodPut, "/api/admin/gallery/reorder", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/gallery", nil))
	images := decode[map[string][]imageResponse](t, rec)["images"]
	if len(images) != 2 || images[0].ID != b.ID || images[1].ID != a.ID {
		t.Errorf("admin order = %+v, want b then a", images)
	}

	for _, bad := range []string{``, `[]`, `[{"id":1,"position":"2"}]`} {
		rec := env.do(t, httptest.NewRequest(http.MethodPut, "/api/admin/gallery/reorder", strings.NewReader(bad)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %q: status = %d, want 400", bad, rec.Code)
		}
	}
}
