package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trinnux/gallery/internal/ctxkeys"
	"github.com/trinnux/gallery/internal/service"
)

// RequireAdmin rejects requests without a valid admin bearer token and adds
// the admin identity to the context of those that pass.
func RequireAdmin(authService *service.AuthService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			admin, err := authService.VerifyAdmin(token)
			if errors.Is(err, service.ErrNotAdmin) {
				slog.Warn("non-admin token rejected", "path", r.URL.Path, "request_id", ctxkeys.RequestID(r.Context()))
				writeError(w, http.StatusForbidden, "admin privileges required")
				return
			}
			if err != nil {
				slog.Debug("invalid token rejected", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next(w, r.WithContext(ctxkeys.WithAdmin(r.Context(), admin)))
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
