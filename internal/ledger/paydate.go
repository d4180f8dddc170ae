// Package ledger implements the money-movement transaction engine: payment
// date derivation, transfer pairing, installment amortization, cascading
// deletes and balance aggregation.
package ledger

import (
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// PaymentDate derives when a transaction actually hits the account.
//
// For anything other than a credit card, or a credit card with no closing day
// configured, the payment date is the transaction date itself. For a credit
// card, a purchase on or before the closing day lands on next month's
// statement and one after it lands on the statement after that; the due day
// is closing_day + due_day_offset days into the statement month.
//
// The due day is reached by adding days from the first of the target month
// rather than setting the day field directly: closing_day + offset can exceed
// the days in the month (day 35 of February), and adding days always lands on
// a valid date, rolling into the following month when it overflows.
func PaymentDate(txnDate time.Time, account *model.Account) time.Time {
	if account.Type != model.AccountCreditCard || account.ClosingDay == nil {
		return txnDate
	}

	closingDay := *account.ClosingDay
	monthsAhead := 1
	if txnDate.Day() > closingDay {
		monthsAhead = 2
	}

	// time.Date normalizes out-of-range months, carrying the year.
	firstOfTarget := time.Date(txnDate.Year(), txnDate.Month()+time.Month(monthsAhead), 1,
		0, 0, 0, 0, txnDate.Location())

	return firstOfTarget.AddDate(0, 0, closingDay+account.DueDayOffset-1)
}

// addMonths advances d by the given number of calendar months, clamping the
// day of month to the last valid day of the target month (Jan 31 + 1 month is
// Feb 28, or Feb 29 in a leap year). This is not what time.AddDate does: that
// normalizes Jan 31 + 1 month into March.
func addMonths(d time.Time, months int) time.Time {
	firstOfTarget := time.Date(d.Year(), d.Month()+time.Month(months), 1,
		0, 0, 0, 0, d.Location())

	day := d.Day()
	if last := daysInMonth(firstOfTarget); day > last {
		day = last
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

// daysInMonth returns the number of days in the month containing d.
func daysInMonth(d time.Time) int {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	return first.AddDate(0, 1, -1).Day()
}
