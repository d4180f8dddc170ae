package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

const transactionColumns = `id, type, description, amount, currency,
	transaction_date, payment_date, account_id, category_id,
	installment_number, transfer_partner_id, installment_plan_id, created_at`

// CreateTransaction inserts a new ledger row and assigns its ID.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return s.createTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) createTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			type, description, amount, currency, transaction_date, payment_date,
			account_id, category_id, installment_number, transfer_partner_id,
			installment_plan_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(txn.Type),
		txn.Description,
		txn.Amount.String(),
		txn.Currency,
		txn.TransactionDate.Format(dateLayout),
		txn.PaymentDate.Format(dateLayout),
		txn.AccountID,
		txn.CategoryID,
		txn.InstallmentNumber,
		txn.TransferPartnerID,
		txn.InstallmentPlanID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	txn.ID = id
	return nil
}

// GetTransaction returns a ledger row by ID with its tags, or nil if it does
// not exist.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTransactionTx(ctx context.Context, q queryable, id int64) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	tagRows, err := q.QueryContext(ctx,
		`SELECT tag_id FROM transaction_tags WHERE transaction_id = ? ORDER BY tag_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction tags: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	for tagRows.Next() {
		var tagID int64
		if err := tagRows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("failed to scan tag id: %w", err)
		}
		txn.TagIDs = append(txn.TagIDs, tagID)
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction tags: %w", err)
	}
	return txn, nil
}

// ListTransactionsByAccount returns all of an account's ledger rows, newest
// payment date first.
func (s *SQLiteStorage) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listTransactionsByAccountTx(ctx, s.db, accountID)
}

func (s *SQLiteStorage) listTransactionsByAccountTx(ctx context.Context, q queryable, accountID int64) ([]model.Transaction, error) {
	return s.listTransactions(ctx, q,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE account_id = ?
		 ORDER BY payment_date DESC, transaction_date DESC, id DESC`, accountID)
}

// ListTransactionsByPlan returns an installment plan's rows in installment
// order.
func (s *SQLiteStorage) ListTransactionsByPlan(ctx context.Context, planID int64) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listTransactionsByPlanTx(ctx, s.db, planID)
}

func (s *SQLiteStorage) listTransactionsByPlanTx(ctx context.Context, q queryable, planID int64) ([]model.Transaction, error) {
	return s.listTransactions(ctx, q,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE installment_plan_id = ?
		 ORDER BY installment_number`, planID)
}

func (s *SQLiteStorage) listTransactions(ctx context.Context, q queryable, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	index := make(map[int64]int)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		index[txn.ID] = len(txns)
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	if len(txns) == 0 {
		return nil, nil
	}

	// One pass over the join table instead of a query per row; rows outside
	// this result set are skipped via the index map.
	tagRows, err := q.QueryContext(ctx, `
		SELECT transaction_id, tag_id FROM transaction_tags ORDER BY tag_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction tags: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	for tagRows.Next() {
		var txnID, tagID int64
		if err := tagRows.Scan(&txnID, &tagID); err != nil {
			return nil, fmt.Errorf("failed to scan tag id: %w", err)
		}
		if i, ok := index[txnID]; ok {
			txns[i].TagIDs = append(txns[i].TagIDs, tagID)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction tags: %w", err)
	}
	return txns, nil
}

// SetTransferPartner updates one side of a transfer link. Passing nil clears
// the link.
func (s *SQLiteStorage) SetTransferPartner(ctx context.Context, id int64, partnerID *int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.setTransferPartnerTx(ctx, s.db, id, partnerID)
}

func (s *SQLiteStorage) setTransferPartnerTx(ctx context.Context, q queryable, id int64, partnerID *int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE transactions SET transfer_partner_id = ? WHERE id = ?`, partnerID, id)
	if err != nil {
		return fmt.Errorf("failed to set transfer partner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// DeleteTransaction removes a single ledger row. Transfer pairing is the
// engine's concern; this deletes exactly the row asked for.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.deleteTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteTransactionTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// AttachTags associates tags with a transaction. A nil or empty slice is a
// no-op.
func (s *SQLiteStorage) AttachTags(ctx context.Context, transactionID int64, tagIDs []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.attachTagsTx(ctx, s.db, transactionID, tagIDs)
}

func (s *SQLiteStorage) attachTagsTx(ctx context.Context, q queryable, transactionID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO transaction_tags (transaction_id, tag_id)
			VALUES (?, ?)`, transactionID, tagID); err != nil {
			return fmt.Errorf("failed to attach tag %d: %w", tagID, err)
		}
	}
	return nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var txnType, amount, txnDate, payDate string
	var categoryID, partnerID, planID sql.NullInt64
	var installmentNumber sql.NullInt64

	if err := row.Scan(
		&txn.ID,
		&txnType,
		&txn.Description,
		&amount,
		&txn.Currency,
		&txnDate,
		&payDate,
		&txn.AccountID,
		&categoryID,
		&installmentNumber,
		&partnerID,
		&planID,
		&txn.CreatedAt,
	); err != nil {
		return nil, err
	}

	txn.Type = model.TransactionType(txnType)

	var err error
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if txn.TransactionDate, err = time.Parse(dateLayout, txnDate); err != nil {
		return nil, fmt.Errorf("invalid transaction date %q: %w", txnDate, err)
	}
	if txn.PaymentDate, err = time.Parse(dateLayout, payDate); err != nil {
		return nil, fmt.Errorf("invalid payment date %q: %w", payDate, err)
	}

	if categoryID.Valid {
		txn.CategoryID = &categoryID.Int64
	}
	if partnerID.Valid {
		txn.TransferPartnerID = &partnerID.Int64
	}
	if planID.Valid {
		txn.InstallmentPlanID = &planID.Int64
	}
	if installmentNumber.Valid {
		number := int(installmentNumber.Int64)
		txn.InstallmentNumber = &number
	}
	return &txn, nil
}
