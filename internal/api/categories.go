package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	store service.Storage
}

type categoryPayload struct {
	ID     int64  `json:"id,omitempty"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to list categories")
		return
	}

	payloads := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		payloads = append(payloads, categoryPayload{ID: c.ID, UserID: c.UserID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": payloads})
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "failed to parse request body")
		return
	}

	category := &model.Category{UserID: req.UserID, Name: req.Name}
	if err := h.store.CreateCategory(r.Context(), category); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, categoryPayload{ID: category.ID, UserID: category.UserID, Name: category.Name})
}

// Delete handles DELETE /api/categories/{id}. Transactions keep existing,
// uncategorized.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid category ID")
		return
	}

	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
