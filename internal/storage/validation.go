// Package storage provides the SQLite persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tallyhq/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidID          = errors.New("id must be positive")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidPlan        = errors.New("invalid installment plan")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateID ensures an identifier is positive.
func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, paramName)
	}
	return nil
}

// validateAccount validates an account before insert.
func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAccount)
	}
	if !account.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAccount, account.Type)
	}
	if strings.TrimSpace(account.Currency) == "" {
		return fmt.Errorf("%w: missing currency", ErrInvalidAccount)
	}
	if account.ClosingDay != nil && (*account.ClosingDay < 1 || *account.ClosingDay > 31) {
		return fmt.Errorf("%w: closing day %d out of range", ErrInvalidAccount, *account.ClosingDay)
	}
	if account.DueDayOffset < 0 {
		return fmt.Errorf("%w: negative due day offset", ErrInvalidAccount)
	}
	return nil
}

// validateTransaction validates a ledger row before insert. Amounts are
// stored non-negative; the sign lives in the type.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, txn.Type)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidTransaction)
	}
	if txn.TransactionDate.IsZero() {
		return fmt.Errorf("%w: missing transaction date", ErrInvalidTransaction)
	}
	if txn.PaymentDate.IsZero() {
		return fmt.Errorf("%w: missing payment date", ErrInvalidTransaction)
	}
	if txn.AccountID <= 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	if txn.InstallmentPlanID != nil && txn.InstallmentNumber == nil {
		return fmt.Errorf("%w: installment row without installment number", ErrInvalidTransaction)
	}
	return nil
}

// validatePlan validates an installment plan before insert.
func validatePlan(plan *model.InstallmentPlan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan", ErrNilParameter)
	}
	if plan.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidPlan)
	}
	if plan.TotalInstallments < 2 {
		return fmt.Errorf("%w: total installments must be at least 2", ErrInvalidPlan)
	}
	if plan.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: negative total amount", ErrInvalidPlan)
	}
	return nil
}
