package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/storage"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Print an account's current balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}

			store, err := storage.NewSQLiteStorage(databasePath())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			engine := ledger.New(store)
			account, err := store.GetAccount(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("account %d not found", accountID)
			}

			balance, err := engine.AccountBalance(cmd.Context(), accountID)
			if err != nil {
				return err
			}

			cmd.Printf("%s: %s %s\n", account.Name, balance.StringFixed(2), account.Currency)
			return nil
		},
	}
}
