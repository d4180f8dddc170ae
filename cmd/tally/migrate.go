package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := storage.NewSQLiteStorage(databasePath())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if status {
				version, err := store.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("schema version %d (expected %d)\n", version, storage.ExpectedSchemaVersion)
				return nil
			}

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			cmd.Println("database is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "report the current schema version without migrating")
	return cmd
}
