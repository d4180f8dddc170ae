package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

// AccountsHandler handles account endpoints. The engine never mutates
// accounts; everything here is plain resource CRUD plus the derived balance.
type AccountsHandler struct {
	engine *ledger.Engine
	store  service.Storage
}

type createAccountRequest struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Currency     string `json:"currency"`
	ClosingDay   *int   `json:"closing_day"`
	DueDayOffset int    `json:"due_day_offset"`
}

type accountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Currency       string `json:"currency"`
	ClosingDay     *int   `json:"closing_day,omitempty"`
	DueDayOffset   int    `json:"due_day_offset"`
	CurrentBalance string `json:"current_balance"`
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "failed to parse request body")
		return
	}

	account := &model.Account{
		UserID:       req.UserID,
		Name:         req.Name,
		Type:         model.AccountType(req.Type),
		Currency:     req.Currency,
		ClosingDay:   req.ClosingDay,
		DueDayOffset: req.DueDayOffset,
	}
	if err := h.store.CreateAccount(r.Context(), account); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{
		ID:             account.ID,
		Name:           account.Name,
		Type:           string(account.Type),
		Currency:       account.Currency,
		ClosingDay:     account.ClosingDay,
		DueDayOffset:   account.DueDayOffset,
		CurrentBalance: "0",
	})
}

// List handles GET /api/accounts. Each account carries its derived balance.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to list accounts")
		return
	}

	responses := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		balance, err := h.engine.AccountBalance(r.Context(), accounts[i].ID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to compute balance")
			return
		}
		responses = append(responses, accountResponse{
			ID:             accounts[i].ID,
			Name:           accounts[i].Name,
			Type:           string(accounts[i].Type),
			Currency:       accounts[i].Currency,
			ClosingDay:     accounts[i].ClosingDay,
			DueDayOffset:   accounts[i].DueDayOffset,
			CurrentBalance: balance.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": responses})
}

// Get handles GET /api/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid account ID")
		return
	}

	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to get account")
		return
	}
	if account == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "account not found")
		return
	}

	balance, err := h.engine.AccountBalance(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to compute balance")
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		ID:             account.ID,
		Name:           account.Name,
		Type:           string(account.Type),
		Currency:       account.Currency,
		ClosingDay:     account.ClosingDay,
		DueDayOffset:   account.DueDayOffset,
		CurrentBalance: balance.String(),
	})
}

// Delete handles DELETE /api/accounts/{id}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid account ID")
		return
	}

	if err := h.store.DeleteAccount(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
