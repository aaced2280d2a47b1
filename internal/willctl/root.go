// Package willctl implements the operations console for the will journal.
// Commands write through the same engine the platform uses, so every rule
// (share caps, custody, execution phases) applies on the command line too.
package willctl

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"willvault/internal/eventlog"
	"willvault/internal/storage"
	"willvault/internal/treasury"
	"willvault/internal/wills"
)

var (
	databaseURL string
)

// Package-level color styles
var (
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	labelStyle   = color.New(color.Faint)
	addressStyle = color.New(color.FgCyan)
	okStyle      = color.New(color.FgGreen)
	warnStyle    = color.New(color.FgYellow)
	guardStyle   = color.New(color.FgMagenta)
)

var rootCmd = &cobra.Command{
	Use:   "willctl",
	Short: "Operations console for the WillVault journal",
	Long: `willctl drives the will engine directly: creating wills, managing
share ledgers, moving vault funds, and executing distributions.
Every command replays the journal first, so state is always current.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "estate",
		Title: "Estate Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ops",
		Title: "Operations Commands",
	})

	willCmd.GroupID = "estate"
	beneficiaryCmd.GroupID = "estate"
	vaultCmd.GroupID = "estate"
	docsCmd.GroupID = "estate"

	migrateCmd.GroupID = "ops"
	statusCmd.GroupID = "ops"
	balanceCmd.GroupID = "ops"
	simulateCmd.GroupID = "ops"

	// Commands self-register via init() in their respective files
}

func checkError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// console bundles the stores every journal-writing command needs
type console struct {
	repo    *storage.PostgresRepository
	journal *eventlog.PostgresLog
	book    *treasury.PostgresBook
}

func resolveDatabaseURL() (string, error) {
	// .env is optional; fall back to the process environment
	_ = godotenv.Load()

	url := databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return "", fmt.Errorf("no database configured: set DATABASE_URL or pass --database-url")
	}
	return url, nil
}

func dial(ctx context.Context) (*console, error) {
	url, err := resolveDatabaseURL()
	if err != nil {
		return nil, err
	}

	repo, err := storage.NewPostgresRepository(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &console{
		repo:    repo,
		journal: eventlog.NewPostgresLog(repo.Pool()),
		book:    treasury.NewPostgresBook(repo.Pool()),
	}, nil
}

func (c *console) close() {
	c.repo.Close()
}

// engine rebuilds the will engine from the journal
func (c *console) engine(ctx context.Context) (*wills.Engine, error) {
	engine, err := wills.NewEngine(ctx, c.journal, c.book)
	if err != nil {
		return nil, fmt.Errorf("failed to restore engine from journal: %w", err)
	}
	return engine, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be a positive integer, got %q", raw)
	}
	return amount, nil
}
