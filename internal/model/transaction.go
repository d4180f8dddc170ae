// Package model defines the domain types shared across the ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType carries the sign of a money movement. Amounts are stored
// non-negative; income adds to an account's balance, expense subtracts.
type TransactionType string

// Supported transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a single persisted ledger row.
//
// TransferPartnerID links the two legs of a transfer symmetrically: each leg
// points at the other, and deleting either leg removes both. It is a two-node
// cycle by construction, never a longer chain.
type Transaction struct {
	TransactionDate   time.Time
	PaymentDate       time.Time
	CreatedAt         time.Time
	Type              TransactionType
	Description       string
	Currency          string
	Amount            decimal.Decimal
	TagIDs            []int64
	CategoryID        *int64
	InstallmentNumber *int
	TransferPartnerID *int64
	InstallmentPlanID *int64
	AccountID         int64
	ID                int64
}

// SignedAmount returns the amount with the sign implied by the transaction
// type: positive for income, negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsTransferLeg reports whether this row is half of a transfer pair.
func (t *Transaction) IsTransferLeg() bool {
	return t.TransferPartnerID != nil
}
