package willctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"willvault/internal/identity"
)

var vaultKind string

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Move funds in and out of will vaults",
	Long: `Deposit into the locked or flexible vault, or withdraw from the
flexible one. Locked funds only ever leave through execution.`,
}

var vaultDepositCmd = &cobra.Command{
	Use:   "deposit <testator> <amount>",
	Short: "Deposit funds into a vault",
	Long: `Add funds to one of the will's vaults, in the smallest unit.

Examples:
  willctl vault deposit 0xabc... 10 --vault locked
  willctl vault deposit 0xabc... 5  --vault flexible`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runVaultDeposit(args[0], args[1]); err != nil {
			checkError(err)
		}
	},
}

var vaultWithdrawCmd = &cobra.Command{
	Use:   "withdraw <testator> <amount>",
	Short: "Withdraw funds from the flexible vault",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runVaultWithdraw(args[0], args[1]); err != nil {
			checkError(err)
		}
	},
}

func init() {
	vaultDepositCmd.Flags().StringVar(&vaultKind, "vault", "flexible", "Target vault: locked or flexible")

	vaultCmd.AddCommand(vaultDepositCmd)
	vaultCmd.AddCommand(vaultWithdrawCmd)
	rootCmd.AddCommand(vaultCmd)
}

func runVaultDeposit(rawTestator, rawAmount string) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}
	amount, err := parseAmount(rawAmount)
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

	switch vaultKind {
	case "locked":
		err = engine.DepositLocked(ctx, testator, amount)
	case "flexible":
		err = engine.DepositFlexible(ctx, testator, amount)
	default:
		return fmt.Errorf("unknown vault %q: want locked or flexible", vaultKind)
	}
	if err != nil {
		return err
	}

	will, err := engine.Will(testator)
	if err != nil {
		return err
	}

	okStyle.Printf("✅ Deposited %s into the %s vault\n", amount, vaultKind)
	fmt.Printf("   Locked:   %s\n", will.LockedBalance)
	fmt.Printf("   Flexible: %s\n", will.FlexibleBalance)
	return nil
}

func runVaultWithdraw(rawTestator, rawAmount string) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}
	amount, err := parseAmount(rawAmount)
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

	if err := engine.WithdrawFlexible(ctx, testator, amount); err != nil {
		return err
	}

	will, err := engine.Will(testator)
	if err != nil {
		return err
	}

	okStyle.Printf("✅ Withdrew %s from the flexible vault\n", amount)
	fmt.Printf("   Flexible: %s\n", will.FlexibleBalance)
	return nil
}
