package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	server := NewServer(ledger.New(store), store, ":0")
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func createAccount(t *testing.T, ts *httptest.Server, name, accountType, currency string) int64 {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/api/accounts", map[string]any{
		"user_id":  "user-1",
		"name":     name,
		"type":     accountType,
		"currency": currency,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	return int64(body["id"].(float64))
}

func TestCreateAndFetchTransaction(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "Checking", "CHECKING", "USD")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/transactions", map[string]any{
		"type":             "expense",
		"description":      "Groceries",
		"amount":           "42.50",
		"currency":         "USD",
		"transaction_date": "2023-05-12",
		"account_id":       accountID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "42.50", body["amount"])
	assert.Equal(t, "2023-05-12", body["payment_date"])

	id := int64(body["id"].(float64))
	resp, body = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/transactions/%d", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Groceries", body["description"])
}

func TestTransferEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	sourceID := createAccount(t, ts, "Checking", "CHECKING", "USD")
	targetID := createAccount(t, ts, "Savings", "SAVINGS", "USD")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/transactions", map[string]any{
		"type":              "expense",
		"description":       "Monthly savings",
		"amount":            "500.00",
		"transaction_date":  "2023-04-03",
		"account_id":        sourceID,
		"is_transfer":       true,
		"target_account_id": targetID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	require.NotNil(t, body["transfer_partner"])

	sourceTxnID := int64(body["id"].(float64))
	partnerID := int64(body["transfer_partner"].(float64))

	// Both accounts reflect the movement.
	resp, body = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/accounts/%d", sourceID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "-500", body["current_balance"])

	resp, body = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/accounts/%d", targetID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "500", body["current_balance"])

	// Deleting one leg removes both.
	resp, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", sourceTxnID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/transactions/%d", partnerID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCrossCurrencyTransferRejected(t *testing.T) {
	ts := newTestServer(t)
	sourceID := createAccount(t, ts, "Checking", "CHECKING", "USD")
	targetID := createAccount(t, ts, "Euros", "CHECKING", "EUR")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/transactions", map[string]any{
		"type":              "expense",
		"description":       "Vacation",
		"amount":            "100.00",
		"transaction_date":  "2023-06-01",
		"account_id":        sourceID,
		"is_transfer":       true,
		"target_account_id": targetID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "unsupported_operation", body["code"])
}

func TestContradictoryFlagsRejected(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "Checking", "CHECKING", "USD")
	targetID := createAccount(t, ts, "Savings", "SAVINGS", "USD")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/transactions", map[string]any{
		"type":               "expense",
		"description":        "Confused",
		"amount":             "100.00",
		"transaction_date":   "2023-06-01",
		"account_id":         accountID,
		"is_transfer":        true,
		"target_account_id":  targetID,
		"is_installment":     true,
		"total_installments": 3,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestInstallmentEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	accountID := createAccount(t, ts, "Checking", "CHECKING", "USD")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/transactions", map[string]any{
		"type":               "expense",
		"description":        "Laptop",
		"amount":             "1000.00",
		"transaction_date":   "2023-01-15",
		"account_id":         accountID,
		"is_installment":     true,
		"total_installments": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	assert.Equal(t, float64(1), body["installment_number"])
	assert.Equal(t, "100.00", body["amount"])

	resp, body = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/transactions?account_id=%d", accountID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["transactions"], 10)

	// The plan totals the full purchase.
	resp, body = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/accounts/%d", accountID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "-1000", body["current_balance"])
}

func TestUnknownTransactionReturns404(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodDelete, "/api/transactions/9999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "invalid_reference", body["code"])
}
