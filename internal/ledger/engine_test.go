package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.SQLiteStorage) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return New(store), store
}

func createTestAccount(t *testing.T, store *storage.SQLiteStorage, account model.Account) *model.Account {
	t.Helper()
	if account.UserID == "" {
		account.UserID = "user-1"
	}
	require.NoError(t, store.CreateAccount(context.Background(), &account))
	return &account
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateStandardTransaction(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	txn, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Groceries",
		Amount:          money("42.50"),
		Currency:        "USD",
		TransactionDate: date(2023, time.May, 12),
		AccountID:       checking.ID,
	})
	require.NoError(t, err)
	require.NotZero(t, txn.ID)

	// Non-credit account: payment date is the transaction date.
	assert.Equal(t, date(2023, time.May, 12), txn.PaymentDate)

	stored, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.TypeExpense, stored.Type)
	assert.True(t, stored.Amount.Equal(money("42.50")), "amount %s", stored.Amount)
}

func TestCreateStandardTransactionOnCreditCard(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	card := createTestAccount(t, store, model.Account{
		Name: "Visa", Type: model.AccountCreditCard, Currency: "USD",
		ClosingDay: intPtr(5), DueDayOffset: 5,
	})

	txn, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Dinner",
		Amount:          money("80.00"),
		TransactionDate: date(2023, time.January, 1),
		AccountID:       card.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.February, 10), txn.PaymentDate)
}

func TestCreateTransactionValidation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})
	target := createTestAccount(t, store, model.Account{
		Name: "Savings", Type: model.AccountSavings, Currency: "USD",
	})

	base := CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Test",
		Amount:          money("10.00"),
		TransactionDate: date(2023, time.May, 1),
		AccountID:       checking.ID,
	}

	tests := []struct {
		mutate    func(*CreateRequest)
		name      string
		wantField string
	}{
		{
			name: "transfer and installment together",
			mutate: func(r *CreateRequest) {
				r.IsTransfer = true
				r.TargetAccountID = &target.ID
				r.IsInstallment = true
				r.TotalInstallments = 3
			},
		},
		{
			name:      "transfer without target account",
			mutate:    func(r *CreateRequest) { r.IsTransfer = true },
			wantField: "target_account_id",
		},
		{
			name: "installment without count",
			mutate: func(r *CreateRequest) {
				r.IsInstallment = true
			},
			wantField: "total_installments",
		},
		{
			name: "single installment",
			mutate: func(r *CreateRequest) {
				r.IsInstallment = true
				r.TotalInstallments = 1
			},
			wantField: "total_installments",
		},
		{
			name:      "negative amount",
			mutate:    func(r *CreateRequest) { r.Amount = money("-5.00") },
			wantField: "amount",
		},
		{
			name:      "unknown type",
			mutate:    func(r *CreateRequest) { r.Type = "refund" },
			wantField: "type",
		},
		{
			name:      "currency mismatch with account",
			mutate:    func(r *CreateRequest) { r.Currency = "EUR" },
			wantField: "currency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)

			_, err := engine.CreateTransaction(ctx, req)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}

func TestCreateTransfer(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})
	savings := createTestAccount(t, store, model.Account{
		Name: "Savings", Type: model.AccountSavings, Currency: "USD",
	})

	tag := &model.Tag{UserID: "user-1", Name: "moves"}
	require.NoError(t, store.CreateTag(ctx, tag))

	source, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Monthly savings",
		Amount:          money("500.00"),
		TransactionDate: date(2023, time.April, 3),
		AccountID:       checking.ID,
		TagIDs:          []int64{tag.ID},
		IsTransfer:      true,
		TargetAccountID: &savings.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, source.TransferPartnerID)
	assert.Equal(t, model.TypeExpense, source.Type)
	assert.Equal(t, checking.ID, source.AccountID)

	dest, err := store.GetTransaction(ctx, *source.TransferPartnerID)
	require.NoError(t, err)
	require.NotNil(t, dest)
	assert.Equal(t, model.TypeIncome, dest.Type)
	assert.Equal(t, savings.ID, dest.AccountID)
	assert.True(t, dest.Amount.Equal(source.Amount))

	// The link is symmetric.
	require.NotNil(t, dest.TransferPartnerID)
	assert.Equal(t, source.ID, *dest.TransferPartnerID)

	// Both legs carry the tags.
	assert.Equal(t, []int64{tag.ID}, dest.TagIDs)
	sourceStored, err := store.GetTransaction(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{tag.ID}, sourceStored.TagIDs)

	// Exactly one row per account.
	fromRows, err := store.ListTransactionsByAccount(ctx, checking.ID)
	require.NoError(t, err)
	assert.Len(t, fromRows, 1)
	toRows, err := store.ListTransactionsByAccount(ctx, savings.ID)
	require.NoError(t, err)
	assert.Len(t, toRows, 1)
}

func TestCreateTransferPaymentDatesPerLeg(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})
	card := createTestAccount(t, store, model.Account{
		Name: "Visa", Type: model.AccountCreditCard, Currency: "USD",
		ClosingDay: intPtr(5), DueDayOffset: 5,
	})

	source, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Card payment",
		Amount:          money("200.00"),
		TransactionDate: date(2023, time.January, 1),
		AccountID:       checking.ID,
		IsTransfer:      true,
		TargetAccountID: &card.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, date(2023, time.January, 1), source.PaymentDate)

	dest, err := store.GetTransaction(ctx, *source.TransferPartnerID)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.February, 10), dest.PaymentDate)
}

func TestCreateTransferCrossCurrency(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})
	euros := createTestAccount(t, store, model.Account{
		Name: "Euro account", Type: model.AccountChecking, Currency: "EUR",
	})

	_, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Vacation fund",
		Amount:          money("100.00"),
		TransactionDate: date(2023, time.June, 1),
		AccountID:       checking.ID,
		IsTransfer:      true,
		TargetAccountID: &euros.ID,
	})
	require.ErrorIs(t, err, ErrUnsupportedOperation)

	// Nothing was written on either side.
	for _, id := range []int64{checking.ID, euros.ID} {
		rows, listErr := store.ListTransactionsByAccount(ctx, id)
		require.NoError(t, listErr)
		assert.Empty(t, rows)
	}
}

func TestCreateTransferUnknownTarget(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	missing := int64(9999)
	_, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "To nowhere",
		Amount:          money("10.00"),
		TransactionDate: date(2023, time.June, 1),
		AccountID:       checking.ID,
		IsTransfer:      true,
		TargetAccountID: &missing,
	})
	require.ErrorIs(t, err, ErrInvalidReference)

	rows, err := store.ListTransactionsByAccount(ctx, checking.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateInstallmentPlan(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	card := createTestAccount(t, store, model.Account{
		Name: "Visa", Type: model.AccountCreditCard, Currency: "USD",
		ClosingDay: intPtr(5), DueDayOffset: 5,
	})

	first, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:              model.TypeExpense,
		Description:       "New laptop",
		Amount:            money("1000.00"),
		TransactionDate:   date(2023, time.January, 1),
		AccountID:         card.ID,
		IsInstallment:     true,
		TotalInstallments: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, first.InstallmentNumber)
	assert.Equal(t, 1, *first.InstallmentNumber)
	require.NotNil(t, first.InstallmentPlanID)

	plan, err := store.GetInstallmentPlan(ctx, *first.InstallmentPlanID)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 10, plan.TotalInstallments)
	assert.True(t, plan.TotalAmount.Equal(money("1000.00")))

	rows, err := store.ListTransactionsByPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	sum := decimal.Zero
	for i := range rows {
		require.NotNil(t, rows[i].InstallmentNumber)
		assert.Equal(t, i+1, *rows[i].InstallmentNumber)
		assert.Equal(t, date(2023, time.January+time.Month(i), 1), rows[i].TransactionDate)
		sum = sum.Add(rows[i].Amount)
	}
	assert.True(t, sum.Equal(money("1000.00")), "sum %s", sum)
}

func TestInstallmentRemainderOnLastQuota(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	first, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:              model.TypeExpense,
		Description:       "Split three ways",
		Amount:            money("100.00"),
		TransactionDate:   date(2023, time.March, 15),
		AccountID:         checking.ID,
		IsInstallment:     true,
		TotalInstallments: 3,
	})
	require.NoError(t, err)

	rows, err := store.ListTransactionsByPlan(ctx, *first.InstallmentPlanID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "33.33", rows[0].Amount.StringFixed(2))
	assert.Equal(t, "33.33", rows[1].Amount.StringFixed(2))
	assert.Equal(t, "33.34", rows[2].Amount.StringFixed(2))
}

func TestInstallmentHalfCentShareRoundsToEven(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	first, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:              model.TypeExpense,
		Description:       "Tiny split",
		Amount:            money("0.25"),
		TransactionDate:   date(2023, time.March, 15),
		AccountID:         checking.ID,
		IsInstallment:     true,
		TotalInstallments: 2,
	})
	require.NoError(t, err)

	rows, err := store.ListTransactionsByPlan(ctx, *first.InstallmentPlanID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// 0.125 rounds down to the even cent; the last quota absorbs the rest.
	assert.Equal(t, "0.12", rows[0].Amount.StringFixed(2))
	assert.Equal(t, "0.13", rows[1].Amount.StringFixed(2))
}

func TestInstallmentMonthEndClamping(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	first, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:              model.TypeExpense,
		Description:       "Month-end purchase",
		Amount:            money("300.00"),
		TransactionDate:   date(2023, time.January, 31),
		AccountID:         checking.ID,
		IsInstallment:     true,
		TotalInstallments: 3,
	})
	require.NoError(t, err)

	rows, err := store.ListTransactionsByPlan(ctx, *first.InstallmentPlanID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, date(2023, time.January, 31), rows[0].TransactionDate)
	assert.Equal(t, date(2023, time.February, 28), rows[1].TransactionDate)
	assert.Equal(t, date(2023, time.March, 31), rows[2].TransactionDate)
}

func TestDeleteTransferCascades(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})
	savings := createTestAccount(t, store, model.Account{
		Name: "Savings", Type: model.AccountSavings, Currency: "USD",
	})

	transfer := func() (int64, int64) {
		source, err := engine.CreateTransaction(ctx, CreateRequest{
			Type:            model.TypeExpense,
			Description:     "Transfer",
			Amount:          money("50.00"),
			TransactionDate: date(2023, time.July, 1),
			AccountID:       checking.ID,
			IsTransfer:      true,
			TargetAccountID: &savings.ID,
		})
		require.NoError(t, err)
		return source.ID, *source.TransferPartnerID
	}

	assertGone := func(ids ...int64) {
		for _, id := range ids {
			txn, err := store.GetTransaction(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, txn, "transaction %d should be deleted", id)
		}
	}

	// Deleting the source leg removes both rows.
	sourceID, destID := transfer()
	require.NoError(t, engine.DeleteTransaction(ctx, sourceID))
	assertGone(sourceID, destID)

	// Deleting the destination leg does too.
	sourceID, destID = transfer()
	require.NoError(t, engine.DeleteTransaction(ctx, destID))
	assertGone(sourceID, destID)
}

func TestDeleteSingleTransaction(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	txn, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeIncome,
		Description:     "Paycheck",
		Amount:          money("2000.00"),
		TransactionDate: date(2023, time.July, 1),
		AccountID:       checking.ID,
	})
	require.NoError(t, err)

	require.NoError(t, engine.DeleteTransaction(ctx, txn.ID))

	gone, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Deleting again is an invalid reference.
	err = engine.DeleteTransaction(ctx, txn.ID)
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestDeleteInstallmentRowKeepsPlanAndSiblings(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	first, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:              model.TypeExpense,
		Description:       "Couch",
		Amount:            money("1000.00"),
		TransactionDate:   date(2023, time.January, 10),
		AccountID:         checking.ID,
		IsInstallment:     true,
		TotalInstallments: 10,
	})
	require.NoError(t, err)
	planID := *first.InstallmentPlanID

	rows, err := store.ListTransactionsByPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	// Cancel the last future installment.
	require.NoError(t, engine.DeleteTransaction(ctx, rows[9].ID))

	remaining, err := store.ListTransactionsByPlan(ctx, planID)
	require.NoError(t, err)
	assert.Len(t, remaining, 9)

	plan, err := store.GetInstallmentPlan(ctx, planID)
	require.NoError(t, err)
	assert.NotNil(t, plan, "plan must survive partial deletion")
}

func TestAccountBalance(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})
	empty := createTestAccount(t, store, model.Account{
		Name: "Empty", Type: model.AccountSavings, Currency: "USD",
	})

	_, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeIncome,
		Description:     "Paycheck",
		Amount:          money("100.00"),
		TransactionDate: date(2023, time.August, 1),
		AccountID:       checking.ID,
	})
	require.NoError(t, err)

	_, err = engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Groceries",
		Amount:          money("30.00"),
		TransactionDate: date(2023, time.August, 2),
		AccountID:       checking.ID,
	})
	require.NoError(t, err)

	balance, err := engine.AccountBalance(ctx, checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "70.00", balance.StringFixed(2))

	// Reads are idempotent.
	again, err := engine.AccountBalance(ctx, checking.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(again))

	zero, err := engine.AccountBalance(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = engine.AccountBalance(ctx, 9999)
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestUnknownAccountOnCreate(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.CreateTransaction(context.Background(), CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Orphan",
		Amount:          money("10.00"),
		TransactionDate: date(2023, time.May, 1),
		AccountID:       12345,
	})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestUnknownCategoryOnCreate(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, model.Account{
		Name: "Checking", Type: model.AccountChecking, Currency: "USD",
	})

	missing := int64(9999)
	_, err := engine.CreateTransaction(ctx, CreateRequest{
		Type:            model.TypeExpense,
		Description:     "Uncategorizable",
		Amount:          money("10.00"),
		TransactionDate: date(2023, time.May, 1),
		AccountID:       checking.ID,
		CategoryID:      &missing,
	})
	require.ErrorIs(t, err, ErrInvalidReference)

	rows, err := store.ListTransactionsByAccount(ctx, checking.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
