package willctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"willvault/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or update the replica tables, the journal, the treasury book
and the projection checkpoint. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMigrate(); err != nil {
			checkError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	url, err := resolveDatabaseURL()
	if err != nil {
		return err
	}

	if err := storage.Migrate(context.Background(), url); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	okStyle.Println("✅ Migrations applied")
	return nil
}
