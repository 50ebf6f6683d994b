package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/trinnux/gallery/internal/ctxkeys"
	"github.com/trinnux/gallery/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps an error kind to its status. Client errors carry their
// message; storage and unknown errors are logged and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrTranscode):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		message = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": message})
}
