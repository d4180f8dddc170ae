package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentPlan groups the N ledger rows produced by amortizing a single
// purchase. TotalAmount is the exact sum of all installment amounts; the
// rounding remainder from the flat split is folded into the last installment.
type InstallmentPlan struct {
	CreatedAt         time.Time
	Description       string
	TotalAmount       decimal.Decimal
	InterestRate      decimal.Decimal // stored for future use, unused by the flat split
	TotalInstallments int
	ID                int64
}
