package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tallyhq/tally/internal/model"
)

// CreateAccount inserts a new account and assigns its ID.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return s.createAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) createAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	if account.DueDayOffset == 0 {
		account.DueDayOffset = model.DefaultDueDayOffset
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, type, currency, closing_day, due_day_offset)
		VALUES (?, ?, ?, ?, ?, ?)`,
		account.UserID,
		account.Name,
		string(account.Type),
		account.Currency,
		account.ClosingDay,
		account.DueDayOffset,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account id: %w", err)
	}
	account.ID = id

	slog.Debug("created account", "id", id, "name", account.Name, "type", account.Type)
	return nil
}

// GetAccount returns an account by ID, or nil if it does not exist.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, id int64) (*model.Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, currency, closing_day, due_day_offset, created_at
		FROM accounts
		WHERE id = ?`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by name.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listAccountsTx(ctx, s.db)
}

func (s *SQLiteStorage) listAccountsTx(ctx context.Context, q queryable) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, type, currency, closing_day, due_day_offset, created_at
		FROM accounts
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account. Its transactions go with it via the
// foreign key cascade.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.deleteAccountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteAccountTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// rowScanner lets scanAccount work on both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var account model.Account
	var accountType string
	var closingDay sql.NullInt64

	if err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&accountType,
		&account.Currency,
		&closingDay,
		&account.DueDayOffset,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}

	account.Type = model.AccountType(accountType)
	if closingDay.Valid {
		day := int(closingDay.Int64)
		account.ClosingDay = &day
	}
	return &account, nil
}
