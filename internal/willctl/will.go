package willctl

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"willvault/internal/identity"
	"willvault/internal/wills"
)

var (
	willCheckInPeriod int64
	willDisputePeriod int64
	willExecutedBy    string
)

var willCmd = &cobra.Command{
	Use:   "will",
	Short: "Create and manage wills",
}

var willCreateCmd = &cobra.Command{
	Use:   "create <testator>",
	Short: "Create a will for a testator",
	Long: `Register a new will with its dead-man's-switch configuration.
Periods are in seconds.

Examples:
  willctl will create 0xabc... --check-in 2592000 --dispute 604800`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWillCreate(args[0]); err != nil {
			checkError(err)
		}
	},
}

var willCheckInCmd = &cobra.Command{
	Use:   "check-in <testator>",
	Short: "Record a proof-of-life check-in",
	Long:  `Reset the check-in timer. The execution deadline moves forward by one full check-in period from now.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWillCheckIn(args[0]); err != nil {
			checkError(err)
		}
	},
}

var willExecuteCmd = &cobra.Command{
	Use:   "execute <testator>",
	Short: "Execute a will and distribute its funds",
	Long: `Distribute all vault funds to the beneficiaries according to their
shares. Who may execute depends on the phase: nobody before the deadline,
the guardian during the dispute window, any beneficiary after it.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWillExecute(args[0]); err != nil {
			checkError(err)
		}
	},
}

var willShowCmd = &cobra.Command{
	Use:   "show <testator>",
	Short: "Show the engine's view of a will",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWillShow(args[0]); err != nil {
			checkError(err)
		}
	},
}

func init() {
	willCreateCmd.Flags().Int64Var(&willCheckInPeriod, "check-in", 2592000, "Check-in period in seconds")
	willCreateCmd.Flags().Int64Var(&willDisputePeriod, "dispute", 604800, "Dispute period in seconds")
	willExecuteCmd.Flags().StringVar(&willExecutedBy, "by", "", "Wallet performing the execution (required)")
	_ = willExecuteCmd.MarkFlagRequired("by")

	willCmd.AddCommand(willCreateCmd)
	willCmd.AddCommand(willCheckInCmd)
	willCmd.AddCommand(willExecuteCmd)
	willCmd.AddCommand(willShowCmd)
	rootCmd.AddCommand(willCmd)
}

func runWillCreate(rawTestator string) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	engine, err := c.engine(ctx)
	if err != nil {
		return err
	}

	if err := engine.CreateWill(ctx, testator, willCheckInPeriod, willDisputePeriod); err != nil {
		return err
	}

	okStyle.Printf("✅ Will created for %s\n", identity.Hex(testator))
	fmt.Printf("   Check-in period: %s\n", formatPeriod(willCheckInPeriod))
	fmt.Printf("   Dispute period:  %s\n", formatPeriod(willDisputePeriod))
	return nil
}

func runWillCheckIn(rawTestator string) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	engine, err := c.engine(ctx)
	if err != nil {
		return err
	}

	if err := engine.CheckIn(ctx, testator); err != nil {
		return err
	}

	will, err := engine.Will(testator)
	if err != nil {
		return err
	}

	okStyle.Println("✅ Check-in recorded")
	fmt.Printf("   Next deadline: %s\n", will.Deadline().Format(time.RFC3339))
	return nil
}

func runWillExecute(rawTestator string) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}
	caller, err := identity.Parse(willExecutedBy)
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	engine, err := c.engine(ctx)
	if err != nil {
		return err
	}

	will, err := engine.Will(testator)
	if err != nil {
		return err
	}
	total := will.TotalFunds()

	if err := engine.ExecuteWill(ctx, caller, testator); err != nil {
		return err
	}

	okStyle.Printf("✅ Will executed, %s distributed across %d beneficiaries\n", total, len(will.Beneficiaries))
	return nil
}

func runWillShow(rawTestator string) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	engine, err := c.engine(ctx)
	if err != nil {
		return err
	}

	will, err := engine.Will(testator)
	if err != nil {
		return err
	}

	printWill(will)
	return nil
}

func printWill(will wills.Will) {
	headerStyle.Println("Will")
	labelStyle.Print("  Testator:    ")
	addressStyle.Println(identity.Hex(will.Testator))
	fmt.Printf("  Created:     %s\n", will.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Check-in:    every %s, last %s\n", formatPeriod(will.CheckInPeriod), will.LastCheckIn.Format(time.RFC3339))

	if will.Executed {
		warnStyle.Printf("  Executed:    %s\n", will.ExecutedAt.Format(time.RFC3339))
	} else {
		now := time.Now().UTC()
		fmt.Printf("  Deadline:    %s\n", will.Deadline().Format(time.RFC3339))
		fmt.Printf("  Dispute end: %s\n", will.DisputeEnd().Format(time.RFC3339))
		fmt.Printf("  Phase:       %s\n", will.PhaseAt(now))
	}

	fmt.Printf("  Locked:      %s\n", will.LockedBalance)
	fmt.Printf("  Flexible:    %s\n", will.FlexibleBalance)

	fmt.Println()
	headerStyle.Printf("Beneficiaries (%d/%d shares allocated)\n", will.TotalShares(), wills.MaxShares)
	for _, b := range will.Beneficiaries {
		addressStyle.Printf("  %s", identity.Hex(b.Wallet))
		fmt.Printf("  %3d%%", b.Share)
		if b.Guardian {
			guardStyle.Print("  guardian")
		}
		fmt.Println()
	}

	if len(will.Documents) > 0 {
		fmt.Println()
		headerStyle.Printf("Documents (%d)\n", len(will.Documents))
		for _, d := range will.Documents {
			fmt.Printf("  %s  %s\n", d.Hash, d.Name)
		}
	}
}

func formatPeriod(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
