package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

// TagsHandler handles tag endpoints.
type TagsHandler struct {
	store service.Storage
}

type tagPayload struct {
	ID     int64  `json:"id,omitempty"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
}

// List handles GET /api/tags.
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to list tags")
		return
	}

	payloads := make([]tagPayload, 0, len(tags))
	for _, t := range tags {
		payloads = append(payloads, tagPayload{ID: t.ID, UserID: t.UserID, Name: t.Name, Color: t.Color})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": payloads})
}

// Create handles POST /api/tags.
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tagPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "failed to parse request body")
		return
	}

	tag := &model.Tag{UserID: req.UserID, Name: req.Name, Color: req.Color}
	if err := h.store.CreateTag(r.Context(), tag); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tagPayload{ID: tag.ID, UserID: tag.UserID, Name: tag.Name, Color: tag.Color})
}

// Delete handles DELETE /api/tags/{id}.
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid tag ID")
		return
	}

	if err := h.store.DeleteTag(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
