package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/ledger"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Validation and reference errors carry enough detail for the client to fix
// the request; atomicity failures are generic and safe to retry.
func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *ledger.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "validation_error",
			Message: validationErr.Reason,
			Field:   validationErr.Field,
		})
		return
	}

	if errors.Is(err, ledger.ErrInvalidReference) {
		writeJSONError(w, http.StatusNotFound, "invalid_reference", err.Error())
		return
	}

	if errors.Is(err, ledger.ErrUnsupportedOperation) {
		writeJSONError(w, http.StatusUnprocessableEntity, "unsupported_operation", err.Error())
		return
	}

	var atomicityErr *ledger.AtomicityError
	if errors.As(err, &atomicityErr) {
		common.LogError(atomicityErr.Err, "operation rolled back", common.Fields{"op": atomicityErr.Op})
		writeJSONError(w, http.StatusInternalServerError, "operation_failed",
			"the operation was rolled back; it is safe to retry")
		return
	}

	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "not_found", "record not found")
		return
	}

	common.LogError(err, "unhandled engine error", nil)
	writeJSONError(w, http.StatusInternalServerError, "server_error", "internal error")
}
