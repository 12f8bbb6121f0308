package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-iform/pkg/schema"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error      string      `json:"error"`
	Code       string      `json:"code"`
	Violations []violation `json:"violations,omitempty"`
}

type violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("httpapi: encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, code, message string) {
	writeJSON(w, logger, status, errorBody{Error: message, Code: code})
}

// writeFormError maps loader and store failures onto status codes.
func writeFormError(w http.ResponseWriter, logger *slog.Logger, name string, err error) {
	var schemaErr *schema.SchemaError
	switch {
	case errors.Is(err, schema.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, "NOT_FOUND", "form not found: "+name)
	case errors.As(err, &schemaErr):
		body := errorBody{Error: "form document is invalid", Code: "INVALID_FORM"}
		for _, v := range schemaErr.Violations {
			body.Violations = append(body.Violations, violation{Path: v.Path, Reason: v.Reason})
		}
		writeJSON(w, logger, http.StatusUnprocessableEntity, body)
	default:
		logger.Error("httpapi: load form", "form", name, "error", err)
		writeError(w, logger, http.StatusInternalServerError, "INTERNAL", "could not load form")
	}
}
