package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

const dateLayout = "2006-01-02"

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	engine *ledger.Engine
	store  service.Storage
}

type createTransactionRequest struct {
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	TransactionDate string  `json:"transaction_date"`
	AccountID       int64   `json:"account_id"`
	CategoryID      *int64  `json:"category_id"`
	TagIDs          []int64 `json:"tag_ids"`

	IsTransfer      bool    `json:"is_transfer"`
	TargetAccountID *int64  `json:"target_account_id"`
	ExchangeRate    *string `json:"exchange_rate"`

	IsInstallment     bool `json:"is_installment"`
	TotalInstallments int  `json:"total_installments"`
}

type transactionResponse struct {
	ID                int64   `json:"id"`
	Type              string  `json:"type"`
	Description       string  `json:"description"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	TransactionDate   string  `json:"transaction_date"`
	PaymentDate       string  `json:"payment_date"`
	AccountID         int64   `json:"account_id"`
	CategoryID        *int64  `json:"category_id,omitempty"`
	TagIDs            []int64 `json:"tag_ids,omitempty"`
	InstallmentNumber *int    `json:"installment_number,omitempty"`
	TransferPartner   *int64  `json:"transfer_partner,omitempty"`
	InstallmentPlan   *int64  `json:"installment_plan,omitempty"`
}

func toTransactionResponse(txn *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:                txn.ID,
		Type:              string(txn.Type),
		Description:       txn.Description,
		Amount:            txn.Amount.StringFixed(2),
		Currency:          txn.Currency,
		TransactionDate:   txn.TransactionDate.Format(dateLayout),
		PaymentDate:       txn.PaymentDate.Format(dateLayout),
		AccountID:         txn.AccountID,
		CategoryID:        txn.CategoryID,
		TagIDs:            txn.TagIDs,
		InstallmentNumber: txn.InstallmentNumber,
		TransferPartner:   txn.TransferPartnerID,
		InstallmentPlan:   txn.InstallmentPlanID,
	}
}

// Create handles POST /api/transactions. The same endpoint covers plain
// rows, transfers (is_transfer + target_account_id) and installment plans
// (is_installment + total_installments); the engine rejects contradictory
// combinations.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "failed to parse request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid amount")
		return
	}

	txnDate, err := time.Parse(dateLayout, req.TransactionDate)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid transaction_date")
		return
	}

	var exchangeRate *decimal.Decimal
	if req.ExchangeRate != nil {
		rate, rateErr := decimal.NewFromString(*req.ExchangeRate)
		if rateErr != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid exchange_rate")
			return
		}
		exchangeRate = &rate
	}

	txn, err := h.engine.CreateTransaction(r.Context(), ledger.CreateRequest{
		Type:              model.TransactionType(req.Type),
		Description:       req.Description,
		Amount:            amount,
		Currency:          req.Currency,
		TransactionDate:   txnDate,
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		TagIDs:            req.TagIDs,
		IsTransfer:        req.IsTransfer,
		TargetAccountID:   req.TargetAccountID,
		ExchangeRate:      exchangeRate,
		IsInstallment:     req.IsInstallment,
		TotalInstallments: req.TotalInstallments,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

// List handles GET /api/transactions?account_id=N.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	accountIDStr := r.URL.Query().Get("account_id")
	if accountIDStr == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "account_id is required")
		return
	}
	accountID, err := strconv.ParseInt(accountIDStr, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid account_id")
		return
	}

	txns, err := h.store.ListTransactionsByAccount(r.Context(), accountID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to list transactions")
		return
	}

	responses := make([]transactionResponse, 0, len(txns))
	for i := range txns {
		responses = append(responses, toTransactionResponse(&txns[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": responses})
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid transaction ID")
		return
	}

	txn, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to get transaction")
		return
	}
	if txn == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "transaction not found")
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(txn))
}

// Delete handles DELETE /api/transactions/{id}. Deleting a transfer leg
// removes both legs.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "invalid transaction ID")
		return
	}

	if err := h.engine.DeleteTransaction(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
