package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tallyhq/tally/internal/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int {
	return &v
}

func TestPaymentDate(t *testing.T) {
	tests := []struct {
		name    string
		account model.Account
		txnDate time.Time
		want    time.Time
	}{
		{
			name:    "checking account is identity",
			account: model.Account{Type: model.AccountChecking, ClosingDay: intPtr(5), DueDayOffset: 5},
			txnDate: date(2023, time.January, 15),
			want:    date(2023, time.January, 15),
		},
		{
			name:    "cash account is identity",
			account: model.Account{Type: model.AccountCash},
			txnDate: date(2023, time.June, 30),
			want:    date(2023, time.June, 30),
		},
		{
			name:    "credit card without closing day is identity",
			account: model.Account{Type: model.AccountCreditCard, DueDayOffset: 10},
			txnDate: date(2023, time.January, 15),
			want:    date(2023, time.January, 15),
		},
		{
			name:    "purchase before closing day lands next month",
			account: model.Account{Type: model.AccountCreditCard, ClosingDay: intPtr(5), DueDayOffset: 5},
			txnDate: date(2023, time.January, 1),
			want:    date(2023, time.February, 10),
		},
		{
			name:    "purchase on closing day lands next month",
			account: model.Account{Type: model.AccountCreditCard, ClosingDay: intPtr(5), DueDayOffset: 5},
			txnDate: date(2023, time.January, 5),
			want:    date(2023, time.February, 10),
		},
		{
			name:    "purchase after closing day skips a month",
			account: model.Account{Type: model.AccountCreditCard, ClosingDay: intPtr(5), DueDayOffset: 5},
			txnDate: date(2023, time.January, 6),
			want:    date(2023, time.March, 10),
		},
		{
			name:    "year rollover with short february overflows into march",
			account: model.Account{Type: model.AccountCreditCard, ClosingDay: intPtr(20), DueDayOffset: 10},
			txnDate: date(2023, time.December, 25),
			// Feb 2024 has 29 days; day 30 of the cycle rolls into March.
			want: date(2024, time.March, 1),
		},
		{
			name:    "december purchase before closing day carries the year",
			account: model.Account{Type: model.AccountCreditCard, ClosingDay: intPtr(28), DueDayOffset: 7},
			txnDate: date(2023, time.December, 10),
			// Jan 1 plus 34 days (28 + 7 - 1).
			want: date(2024, time.February, 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaymentDate(tt.txnDate, &tt.account)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{
			name:   "mid-month is untouched",
			start:  date(2023, time.March, 15),
			months: 1,
			want:   date(2023, time.April, 15),
		},
		{
			name:   "jan 31 clamps to feb 28",
			start:  date(2023, time.January, 31),
			months: 1,
			want:   date(2023, time.February, 28),
		},
		{
			name:   "jan 31 clamps to feb 29 in a leap year",
			start:  date(2024, time.January, 31),
			months: 1,
			want:   date(2024, time.February, 29),
		},
		{
			name:   "jan 31 plus three months clamps to apr 30",
			start:  date(2023, time.January, 31),
			months: 3,
			want:   date(2023, time.April, 30),
		},
		{
			name:   "year carry",
			start:  date(2023, time.November, 10),
			months: 4,
			want:   date(2024, time.March, 10),
		},
		{
			name:   "zero months",
			start:  date(2023, time.July, 7),
			months: 0,
			want:   date(2023, time.July, 7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, addMonths(tt.start, tt.months))
		})
	}
}
