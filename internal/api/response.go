package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/model"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// writeError maps the error taxonomy onto HTTP status codes. Anything
// unrecognised is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrForbiddenReference):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrDuplicateName),
		errors.Is(err, model.ErrDuplicateItem),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrDanglingReference),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidImage):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrStorageUnavailable):
		slog.Error("storage unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonResponse(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
		return
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, status, "internal error")
		return
	}

	jsonResponse(w, status, errorResponse{
		Error: err.Error(),
		Field: model.ErrorField(err),
	})
}

// decodeJSON decodes a JSON request body into the given target. Malformed
// bodies are reported as ErrInvalidInput.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return model.NewFieldError(typeErr.Field, fmt.Errorf("%w: %s has the wrong type", model.ErrInvalidInput, typeErr.Field))
		}
		return fmt.Errorf("%w: malformed JSON body", model.ErrInvalidInput)
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, model.NewFieldError("id", fmt.Errorf("%w: id must be a UUID", model.ErrInvalidInput))
	}
	return id, nil
}
