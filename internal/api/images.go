package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
)

// multipartOverhead allows for form fields next to the image itself.
const multipartOverhead = 1 << 20

// ImagesHandler handles item image endpoints.
type ImagesHandler struct {
	Service *inventory.Service
}

// List handles GET /api/images?item_id=.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(r.URL.Query().Get("item_id"))
	if err != nil {
		writeError(w, r, model.NewFieldError("item_id", fmt.Errorf("%w: item_id must be a UUID", model.ErrInvalidInput)))
		return
	}

	images, err := h.Service.ListImages(r.Context(), actor(r), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, images)
}

// Create handles POST /api/images with a multipart form carrying item_id,
// is_primary and the image file.
func (h *ImagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	up := inventory.ImageUpload{ItemID: r.FormValue("item_id")}

	if v := r.FormValue("is_primary"); v != "" {
		primary, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, model.NewFieldError("is_primary", fmt.Errorf("%w: is_primary must be a boolean", model.ErrInvalidInput)))
			return
		}
		up.IsPrimary = primary
	}

	file, _, err := r.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		jsonError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	if file != nil {
		defer file.Close()
		if up.Data, err = io.ReadAll(file); err != nil {
			jsonError(w, http.StatusBadRequest, "failed to read image")
			return
		}
	}

	img, err := h.Service.AttachImage(r.Context(), actor(r), up)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, img)
}

// Get handles GET /api/images/{id}.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	img, err := h.Service.GetImage(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, img)
}

// Content handles GET /api/images/{id}/content.
func (h *ImagesHandler) Content(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	img, rc, err := h.Service.OpenImage(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("streaming image", "id", id, "error", err)
	}
}

// Update handles PUT /api/images/{id}.
func (h *ImagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in inventory.ImageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	img, err := h.Service.UpdateImage(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, img)
}

// Patch handles PATCH /api/images/{id}.
func (h *ImagesHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var p inventory.ImagePatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}

	img, err := h.Service.PatchImage(r.Context(), actor(r), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, img)
}

// Delete handles DELETE /api/images/{id}.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Service.DeleteImage(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
