package willctl

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"willvault/internal/debug"
	"willvault/internal/event"
	"willvault/internal/eventlog"
	"willvault/internal/identity"
	"willvault/internal/projection"
	"willvault/internal/storage"
	"willvault/internal/treasury"
	"willvault/internal/wills"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a complete will lifecycle in memory",
	Long: `Walk one will from creation through execution against in-memory
stores. Nothing touches the database. Demonstrates the share ledger, both
vaults, the three execution phases, and the payout arithmetic.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSimulate(); err != nil {
			checkError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate() error {
	// Debug level so the projected-state dumps are visible
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	ctx := context.Background()

	alice := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	grace := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	journal := eventlog.NewMemoryLog()
	book := treasury.NewMemoryBook()

	engine, err := wills.NewEngine(ctx, journal, book, wills.WithClock(clock))
	if err != nil {
		return err
	}

	const (
		checkInPeriod = int64(2592000) // 30 days
		disputePeriod = int64(604800)  // 7 days
	)

	step("Alice creates a will: 30d check-in, 7d dispute window")
	if err := engine.CreateWill(ctx, alice, checkInPeriod, disputePeriod); err != nil {
		return err
	}

	step("Bob joins the share ledger with 60%")
	if err := engine.AddBeneficiary(ctx, alice, bob, 60, false); err != nil {
		return err
	}

	step("Grace joins with 40% as guardian")
	if err := engine.AddBeneficiary(ctx, alice, grace, 40, true); err != nil {
		return err
	}

	step("Alice deposits 10 into the locked vault, 5 into the flexible one")
	if err := engine.DepositLocked(ctx, alice, big.NewInt(10)); err != nil {
		return err
	}
	if err := engine.DepositFlexible(ctx, alice, big.NewInt(5)); err != nil {
		return err
	}

	step("Alice checks in; the deadline resets")
	if err := engine.CheckIn(ctx, alice); err != nil {
		return err
	}

	step("Bob tries to execute before the deadline")
	refused(engine.ExecuteWill(ctx, bob, alice))

	now = now.Add(time.Duration(checkInPeriod)*time.Second + time.Hour)
	step("The deadline passes; Bob tries again inside the dispute window")
	refused(engine.ExecuteWill(ctx, bob, alice))

	now = now.Add(time.Duration(disputePeriod) * time.Second)
	step("The dispute window closes; Bob executes")
	if err := engine.ExecuteWill(ctx, bob, alice); err != nil {
		return err
	}

	okStyle.Printf("   Bob settled:   %s\n", book.Balance(bob))
	okStyle.Printf("   Grace settled: %s\n", book.Balance(grace))

	fmt.Println()
	step("Projecting the journal into an in-memory replica")
	repo := storage.NewMemoryRepository()
	if err := project(ctx, journal, repo); err != nil {
		return err
	}

	record, err := repo.GetWill(ctx, identity.Hex(alice))
	if err != nil {
		return err
	}
	debug.PrintWill(record)

	payouts, err := repo.ListPayouts(ctx, identity.Hex(alice))
	if err != nil {
		return err
	}
	headerStyle.Println("Payouts")
	for _, p := range payouts {
		addressStyle.Printf("  %s", p.Wallet)
		fmt.Printf("  %3d%%  %s\n", p.Share, p.Amount)
	}

	return nil
}

// project drains the journal through the applier, the same code path the
// indexer runs against Postgres
func project(ctx context.Context, journal eventlog.Store, repo storage.Repository) error {
	applier := projection.NewApplier(repo)

	var cursor event.Cursor
	for {
		events, err := journal.ListAfter(ctx, cursor, 100)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		for _, ev := range events {
			if err := applier.Apply(ctx, ev); err != nil {
				return err
			}
			cursor = ev.Cursor()
		}
	}
}

func step(message string) {
	headerStyle.Printf("▸ %s\n", message)
}

func refused(err error) {
	if err != nil {
		warnStyle.Printf("   Rejected: %v\n", err)
		return
	}
	warnStyle.Println("   Unexpectedly allowed")
}
