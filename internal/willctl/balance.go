package willctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"willvault/internal/identity"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <wallet>",
	Short: "Show a wallet's settled treasury balance",
	Long: `Display the funds credited to a wallet by withdrawals and
executed distributions.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBalance(args[0]); err != nil {
			checkError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(rawWallet string) error {
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

	balance, err := c.book.Balance(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	labelStyle.Print("Wallet:  ")
	addressStyle.Println(identity.Hex(wallet))
	fmt.Printf("Balance: %s\n", balance)
	return nil
}
