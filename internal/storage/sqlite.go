package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// dateLayout is how transaction and payment dates are stored. The ledger is
// date-granular; times never matter.
const dateLayout = "2006-01-02"

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// queryable is satisfied by both *sql.DB and *sql.Tx so every query helper
// can run directly or inside a transaction.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance. Foreign keys are
// enforced so that racing writes against a concurrent account delete fail
// loudly instead of orphaning rows.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Tx, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTx{tx: tx, storage: s}, nil
}

// sqliteTx wraps sql.Tx to implement service.Tx. Store methods delegate to
// the shared query helpers with the transaction as the queryable.
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	return t.storage.createAccountTx(ctx, t.tx, account)
}

func (t *sqliteTx) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return t.storage.getAccountTx(ctx, t.tx, id)
}

func (t *sqliteTx) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return t.storage.listAccountsTx(ctx, t.tx)
}

func (t *sqliteTx) DeleteAccount(ctx context.Context, id int64) error {
	return t.storage.deleteAccountTx(ctx, t.tx, id)
}

func (t *sqliteTx) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return t.storage.createTransactionTx(ctx, t.tx, txn)
}

func (t *sqliteTx) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return t.storage.getTransactionTx(ctx, t.tx, id)
}

func (t *sqliteTx) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	return t.storage.listTransactionsByAccountTx(ctx, t.tx, accountID)
}

func (t *sqliteTx) ListTransactionsByPlan(ctx context.Context, planID int64) ([]model.Transaction, error) {
	return t.storage.listTransactionsByPlanTx(ctx, t.tx, planID)
}

func (t *sqliteTx) SetTransferPartner(ctx context.Context, id int64, partnerID *int64) error {
	return t.storage.setTransferPartnerTx(ctx, t.tx, id, partnerID)
}

func (t *sqliteTx) DeleteTransaction(ctx context.Context, id int64) error {
	return t.storage.deleteTransactionTx(ctx, t.tx, id)
}

func (t *sqliteTx) AttachTags(ctx context.Context, transactionID int64, tagIDs []int64) error {
	return t.storage.attachTagsTx(ctx, t.tx, transactionID, tagIDs)
}

func (t *sqliteTx) CreateInstallmentPlan(ctx context.Context, plan *model.InstallmentPlan) error {
	if err := validatePlan(plan); err != nil {
		return err
	}
	return t.storage.createInstallmentPlanTx(ctx, t.tx, plan)
}

func (t *sqliteTx) GetInstallmentPlan(ctx context.Context, id int64) (*model.InstallmentPlan, error) {
	return t.storage.getInstallmentPlanTx(ctx, t.tx, id)
}

func (t *sqliteTx) CreateCategory(ctx context.Context, category *model.Category) error {
	return t.storage.createCategoryTx(ctx, t.tx, category)
}

func (t *sqliteTx) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return t.storage.getCategoryTx(ctx, t.tx, id)
}

func (t *sqliteTx) ListCategories(ctx context.Context) ([]model.Category, error) {
	return t.storage.listCategoriesTx(ctx, t.tx)
}

func (t *sqliteTx) DeleteCategory(ctx context.Context, id int64) error {
	return t.storage.deleteCategoryTx(ctx, t.tx, id)
}

func (t *sqliteTx) CreateTag(ctx context.Context, tag *model.Tag) error {
	return t.storage.createTagTx(ctx, t.tx, tag)
}

func (t *sqliteTx) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	return t.storage.getTagTx(ctx, t.tx, id)
}

func (t *sqliteTx) ListTags(ctx context.Context) ([]model.Tag, error) {
	return t.storage.listTagsTx(ctx, t.tx)
}

func (t *sqliteTx) DeleteTag(ctx context.Context, id int64) error {
	return t.storage.deleteTagTx(ctx, t.tx, id)
}
