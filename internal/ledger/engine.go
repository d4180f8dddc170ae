package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"
)

// Engine is the single entry point for money-movement operations. Request
// handling (HTTP, CLI) resolves users and wire formats and hands the engine a
// CreateRequest; the engine owns dates, linkage and arithmetic.
type Engine struct {
	store service.Storage
}

// New creates a transaction engine on top of the given storage.
func New(store service.Storage) *Engine {
	return &Engine{store: store}
}

// CreateRequest describes one user-submitted transaction. Exactly one of the
// three shapes applies: a plain row, a transfer pair (IsTransfer) or an
// amortized installment plan (IsInstallment).
type CreateRequest struct {
	TransactionDate time.Time
	Type            model.TransactionType
	Description     string
	Currency        string
	Amount          decimal.Decimal
	TagIDs          []int64
	CategoryID      *int64

	// Transfer fields. ExchangeRate is accepted but unused while
	// cross-currency transfers are unsupported.
	TargetAccountID *int64
	ExchangeRate    *decimal.Decimal

	// Installment fields.
	TotalInstallments int

	AccountID     int64
	IsTransfer    bool
	IsInstallment bool
}

func (r *CreateRequest) validate() error {
	if !r.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if r.Description == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if r.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if r.TransactionDate.IsZero() {
		return &ValidationError{Field: "transaction_date", Reason: "required"}
	}
	if r.IsTransfer && r.IsInstallment {
		return &ValidationError{Reason: "transaction cannot be both a transfer and an installment plan"}
	}
	if r.IsTransfer && r.TargetAccountID == nil {
		return &ValidationError{Field: "target_account_id", Reason: "required for transfers"}
	}
	if r.IsInstallment {
		if r.TotalInstallments == 0 {
			return &ValidationError{Field: "total_installments", Reason: "required for installments"}
		}
		if r.TotalInstallments < 2 {
			return &ValidationError{Field: "total_installments", Reason: "must be at least 2"}
		}
	}
	return nil
}

// CreateTransaction validates the request, resolves the account and creates
// one or more ledger rows. Multi-row shapes (transfers, installment plans)
// are written atomically: either every row exists afterwards or none does.
func (e *Engine) CreateTransaction(ctx context.Context, req CreateRequest) (*model.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	account, err := e.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", req.AccountID, ErrInvalidReference)
	}
	if req.Currency != "" && req.Currency != account.Currency {
		return nil, &ValidationError{
			Field:  "currency",
			Reason: fmt.Sprintf("account %q is denominated in %s", account.Name, account.Currency),
		}
	}
	if req.CategoryID != nil {
		category, err := e.store.GetCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			return nil, fmt.Errorf("category_id %d: %w", *req.CategoryID, ErrInvalidReference)
		}
	}

	switch {
	case req.IsTransfer:
		return e.createTransfer(ctx, account, req)
	case req.IsInstallment:
		return e.createInstallment(ctx, account, req)
	default:
		return e.createStandard(ctx, account, req)
	}
}

func (e *Engine) createStandard(ctx context.Context, account *model.Account, req CreateRequest) (*model.Transaction, error) {
	txn := &model.Transaction{
		Type:            req.Type,
		Description:     req.Description,
		Amount:          req.Amount,
		Currency:        account.Currency,
		TransactionDate: req.TransactionDate,
		PaymentDate:     PaymentDate(req.TransactionDate, account),
		AccountID:       account.ID,
		CategoryID:      req.CategoryID,
		TagIDs:          req.TagIDs,
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.CreateTransaction(ctx, txn); err != nil {
		return nil, atomicityErr("create transaction", err)
	}
	if err := tx.AttachTags(ctx, txn.ID, req.TagIDs); err != nil {
		return nil, atomicityErr("create transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, atomicityErr("create transaction", err)
	}

	slog.Debug("created transaction",
		"id", txn.ID,
		"account_id", account.ID,
		"type", txn.Type,
		"payment_date", txn.PaymentDate.Format("2006-01-02"))
	return txn, nil
}

// createTransfer writes both legs of a transfer as one atomic unit: money
// leaving the source account (expense) and arriving in the target account
// (income). Payment dates are derived per leg, so two accounts with different
// billing policies settle on different dates.
func (e *Engine) createTransfer(ctx context.Context, source *model.Account, req CreateRequest) (*model.Transaction, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Resolving the target inside the transaction keeps the lookup and the
	// writes in one isolation boundary; a concurrent account delete fails
	// the foreign key instead of orphaning a leg.
	target, err := tx.GetAccount(ctx, *req.TargetAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target account: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("target_account_id %d: %w", *req.TargetAccountID, ErrInvalidReference)
	}
	if source.Currency != target.Currency {
		return nil, ErrCurrencyMismatch
	}

	sourceTxn := &model.Transaction{
		Type:            model.TypeExpense,
		Description:     req.Description,
		Amount:          req.Amount,
		Currency:        source.Currency,
		TransactionDate: req.TransactionDate,
		PaymentDate:     PaymentDate(req.TransactionDate, source),
		AccountID:       source.ID,
		CategoryID:      req.CategoryID,
		TagIDs:          req.TagIDs,
	}
	destTxn := &model.Transaction{
		Type:            model.TypeIncome,
		Description:     req.Description,
		Amount:          req.Amount,
		Currency:        target.Currency,
		TransactionDate: req.TransactionDate,
		PaymentDate:     PaymentDate(req.TransactionDate, target),
		AccountID:       target.ID,
		CategoryID:      req.CategoryID,
		TagIDs:          req.TagIDs,
	}

	if err := tx.CreateTransaction(ctx, sourceTxn); err != nil {
		return nil, atomicityErr("create transfer", err)
	}
	if err := tx.CreateTransaction(ctx, destTxn); err != nil {
		return nil, atomicityErr("create transfer", err)
	}
	if err := tx.AttachTags(ctx, sourceTxn.ID, req.TagIDs); err != nil {
		return nil, atomicityErr("create transfer", err)
	}
	if err := tx.AttachTags(ctx, destTxn.ID, req.TagIDs); err != nil {
		return nil, atomicityErr("create transfer", err)
	}

	// Link the legs symmetrically.
	if err := tx.SetTransferPartner(ctx, sourceTxn.ID, &destTxn.ID); err != nil {
		return nil, atomicityErr("create transfer", err)
	}
	if err := tx.SetTransferPartner(ctx, destTxn.ID, &sourceTxn.ID); err != nil {
		return nil, atomicityErr("create transfer", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, atomicityErr("create transfer", err)
	}

	sourceTxn.TransferPartnerID = &destTxn.ID
	destTxn.TransferPartnerID = &sourceTxn.ID

	slog.Info("created transfer",
		"source_id", sourceTxn.ID,
		"dest_id", destTxn.ID,
		"from_account", source.ID,
		"to_account", target.ID,
		"amount", req.Amount.String())
	return sourceTxn, nil
}

// createInstallment amortizes one purchase into TotalInstallments ledger rows
// plus a plan row, all written atomically. The amount is the total purchase
// price: each installment gets the flat share rounded to cents (half-cent
// shares round to even), and the last one absorbs the rounding remainder so
// the rows always sum to the total.
func (e *Engine) createInstallment(ctx context.Context, account *model.Account, req CreateRequest) (*model.Transaction, error) {
	n := req.TotalInstallments
	count := decimal.NewFromInt(int64(n))
	share := req.Amount.Div(count).RoundBank(2)
	remainder := req.Amount.Sub(share.Mul(count))

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	plan := &model.InstallmentPlan{
		Description:       req.Description,
		TotalAmount:       req.Amount,
		TotalInstallments: n,
	}
	if err := tx.CreateInstallmentPlan(ctx, plan); err != nil {
		return nil, atomicityErr("create installment plan", err)
	}

	var first *model.Transaction
	for i := 0; i < n; i++ {
		amount := share
		if i == n-1 {
			amount = amount.Add(remainder)
		}

		quotaDate := addMonths(req.TransactionDate, i)
		number := i + 1
		txn := &model.Transaction{
			Type:              req.Type,
			Description:       req.Description,
			Amount:            amount,
			Currency:          account.Currency,
			TransactionDate:   quotaDate,
			PaymentDate:       PaymentDate(quotaDate, account),
			AccountID:         account.ID,
			CategoryID:        req.CategoryID,
			TagIDs:            req.TagIDs,
			InstallmentNumber: &number,
			InstallmentPlanID: &plan.ID,
		}

		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return nil, atomicityErr("create installment plan", err)
		}
		if err := tx.AttachTags(ctx, txn.ID, req.TagIDs); err != nil {
			return nil, atomicityErr("create installment plan", err)
		}
		if first == nil {
			first = txn
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, atomicityErr("create installment plan", err)
	}

	slog.Info("created installment plan",
		"plan_id", plan.ID,
		"account_id", account.ID,
		"installments", n,
		"total", req.Amount.String())
	return first, nil
}

// DeleteTransaction removes a ledger row. Deleting either leg of a transfer
// removes both: the legs are unlinked first, in both directions, so neither
// delete can re-trigger the other, then the partner and the row itself are
// deleted in the same atomic unit. Deleting an installment row removes only
// that row; the plan and its sibling installments persist.
func (e *Engine) DeleteTransaction(ctx context.Context, id int64) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txn, err := tx.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return fmt.Errorf("transaction %d: %w", id, ErrInvalidReference)
	}

	if txn.TransferPartnerID != nil {
		partnerID := *txn.TransferPartnerID
		if err := tx.SetTransferPartner(ctx, txn.ID, nil); err != nil {
			return atomicityErr("delete transaction", err)
		}
		if err := tx.SetTransferPartner(ctx, partnerID, nil); err != nil {
			return atomicityErr("delete transaction", err)
		}
		if err := tx.DeleteTransaction(ctx, partnerID); err != nil {
			return atomicityErr("delete transaction", err)
		}
	}

	if err := tx.DeleteTransaction(ctx, txn.ID); err != nil {
		return atomicityErr("delete transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return atomicityErr("delete transaction", err)
	}

	slog.Debug("deleted transaction", "id", id, "was_transfer", txn.TransferPartnerID != nil)
	return nil
}

// AccountBalance folds the account's ledger rows into its current balance:
// income adds, expense subtracts, an account with no rows is zero. Read-only
// and recomputed on every call.
func (e *Engine) AccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	account, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return decimal.Zero, fmt.Errorf("account %d: %w", accountID, ErrInvalidReference)
	}

	txns, err := e.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list transactions: %w", err)
	}

	balance := decimal.Zero
	for i := range txns {
		balance = balance.Add(txns[i].SignedAmount())
	}
	return balance, nil
}
