// Package service defines the persistence contracts the ledger is built on.
package service

import (
	"context"

	"github.com/tallyhq/tally/internal/model"
)

// Store is the set of operations available both directly on a Storage and
// inside an open transaction.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	// Transactions
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error)
	ListTransactionsByPlan(ctx context.Context, planID int64) ([]model.Transaction, error)
	SetTransferPartner(ctx context.Context, id int64, partnerID *int64) error
	DeleteTransaction(ctx context.Context, id int64) error
	AttachTags(ctx context.Context, transactionID int64, tagIDs []int64) error

	// Installment plans
	CreateInstallmentPlan(ctx context.Context, plan *model.InstallmentPlan) error
	GetInstallmentPlan(ctx context.Context, id int64) (*model.InstallmentPlan, error)

	// Categories
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Tags
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, id int64) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	DeleteTag(ctx context.Context, id int64) error
}

// Storage is the full persistence contract.
type Storage interface {
	Store

	// Migrate brings the schema up to the expected version.
	Migrate(ctx context.Context) error

	// BeginTx opens a transaction. Everything performed through the
	// returned Tx is atomic: a concurrent reader sees either none or all
	// of it.
	BeginTx(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is a database transaction over the same operations as the storage.
type Tx interface {
	Store

	Commit() error
	Rollback() error
}
