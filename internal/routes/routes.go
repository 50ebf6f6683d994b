package routes

import (
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/trinnux/gallery/internal/apidocs" // Swagger document
	"github.com/trinnux/gallery/internal/app"
	"github.com/trinnux/gallery/internal/handler"
	"github.com/trinnux/gallery/internal/middleware"
	"github.com/trinnux/gallery/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	gallery := handler.NewGalleryHandler(app.GalleryService)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	mux.HandleFunc("GET /api/gallery", gallery.List)
	mux.HandleFunc("GET /api/gallery/categories", gallery.Categories)

	// Image files, when stored on local disk and no proxy serves them
	if local, ok := app.Storage.(*storage.LocalStorage); ok && app.Cfg.ServeUploads {
		prefix := strings.TrimSuffix(app.Cfg.UploadURLPrefix, "/") + "/"
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir())))
		mux.Handle("GET "+prefix, noDirListing(cacheForever(files)))
	}

	// ============================================================================
	// ADMIN ROUTES (/api/admin/*)
	// ============================================================================

	requireAdmin := middleware.RequireAdmin(app.AuthService)
	rateLimit := middleware.RateLimit(app.Cfg.AdminRateLimit, app.Cfg.AdminRateLimitWindow)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(requireAdmin(h))
	}

	mux.HandleFunc("GET /api/admin/gallery", admin(gallery.AdminList))
	mux.HandleFunc("GET /api/admin/gallery/{id}", admin(gallery.Get))
	mux.HandleFunc("POST /api/admin/gallery", admin(gallery.Create))
	mux.HandleFunc("PUT /api/admin/gallery/reorder", admin(gallery.Reorder))
	mux.HandleFunc("PUT /api/admin/gallery/{id}", admin(gallery.Update))
	mux.HandleFunc("DELETE /api/admin/gallery/{id}", admin(gallery.Delete))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID, // Must run before logging so the id is logged
		middleware.RequestLogging,
	)

	return handler
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stored files are never rewritten under the same name.
func cacheForever(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		next.ServeHTTP(w, r)
	})
}
