package model

import "time"

// AccountType identifies what kind of account a ledger account is.
type AccountType string

// Supported account types.
const (
	// Assets.
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountCash     AccountType = "CASH"

	// Liabilities.
	AccountCreditCard AccountType = "CREDIT"
	AccountLoan       AccountType = "LOAN"
)

// Valid reports whether t is one of the supported account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCash, AccountCreditCard, AccountLoan:
		return true
	}
	return false
}

// DefaultDueDayOffset is the number of days between a credit card's closing
// day and its payment due day when the account does not specify one.
const DefaultDueDayOffset = 10

// Account is a container that transactions are recorded against.
// The engine treats accounts as read-only: billing parameters are consulted
// when deriving payment dates but never mutated.
type Account struct {
	CreatedAt    time.Time
	UserID       string
	Name         string
	Type         AccountType
	Currency     string
	ClosingDay   *int // statement closing day of month, credit cards only
	DueDayOffset int
	ID           int64
}
