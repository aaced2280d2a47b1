package willctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"willvault/internal/identity"
	"willvault/internal/wills"
)

var (
	beneficiaryShare    int
	beneficiaryGuardian bool
)

var beneficiaryCmd = &cobra.Command{
	Use:   "beneficiary",
	Short: "Manage a will's share ledger",
	Long: `Add, update or remove beneficiaries. The share total can never
exceed 100 and at most one beneficiary may be the guardian.`,
}

var beneficiaryAddCmd = &cobra.Command{
	Use:   "add <testator> <wallet>",
	Short: "Add a beneficiary",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBeneficiaryChange(args[0], args[1], beneficiaryAdd); err != nil {
			checkError(err)
		}
	},
}

var beneficiaryUpdateCmd = &cobra.Command{
	Use:   "update <testator> <wallet>",
	Short: "Change a beneficiary's share or guardian role",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBeneficiaryChange(args[0], args[1], beneficiaryUpdate); err != nil {
			checkError(err)
		}
	},
}

var beneficiaryRemoveCmd = &cobra.Command{
	Use:   "remove <testator> <wallet>",
	Short: "Remove a beneficiary",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBeneficiaryChange(args[0], args[1], beneficiaryRemove); err != nil {
			checkError(err)
		}
	},
}

const (
	beneficiaryAdd = iota
	beneficiaryUpdate
	beneficiaryRemove
)

func init() {
	beneficiaryAddCmd.Flags().IntVar(&beneficiaryShare, "share", 0, "Percentage share (1-100)")
	beneficiaryAddCmd.Flags().BoolVar(&beneficiaryGuardian, "guardian", false, "Designate as guardian")
	_ = beneficiaryAddCmd.MarkFlagRequired("share")

	beneficiaryUpdateCmd.Flags().IntVar(&beneficiaryShare, "share", 0, "Percentage share (1-100)")
	beneficiaryUpdateCmd.Flags().BoolVar(&beneficiaryGuardian, "guardian", false, "Designate as guardian")
	_ = beneficiaryUpdateCmd.MarkFlagRequired("share")

	beneficiaryCmd.AddCommand(beneficiaryAddCmd)
	beneficiaryCmd.AddCommand(beneficiaryUpdateCmd)
	beneficiaryCmd.AddCommand(beneficiaryRemoveCmd)
	rootCmd.AddCommand(beneficiaryCmd)
}

func runBeneficiaryChange(rawTestator, rawWallet string, action int) error {
	testator, err := identity.Parse(rawTestator)
	if err != nil {
		return err
	}
	wallet, err := identity.Parse(rawWallet)
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

	switch action {
	case beneficiaryAdd:
		err = engine.AddBeneficiary(ctx, testator, wallet, beneficiaryShare, beneficiaryGuardian)
	case beneficiaryUpdate:
		err = engine.UpdateBeneficiary(ctx, testator, wallet, beneficiaryShare, beneficiaryGuardian)
	case beneficiaryRemove:
		err = engine.RemoveBeneficiary(ctx, testator, wallet)
	}
	if err != nil {
		return err
	}

	will, err := engine.Will(testator)
	if err != nil {
		return err
	}

	okStyle.Println("✅ Share ledger updated")
	fmt.Printf("   Allocated: %d/%d\n", will.TotalShares(), wills.MaxShares)
	if guardian, ok := will.Guardian(); ok {
		fmt.Printf("   Guardian:  %s\n", identity.Hex(guardian))
	}
	return nil
}
