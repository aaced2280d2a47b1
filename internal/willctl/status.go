package willctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journal and replica status",
	Long: `Display the journal head, the projection checkpoint, and replica-wide
aggregates. A checkpoint behind the head means the projection is catching up.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStatus(); err != nil {
			checkError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus() error {
	ctx := context.Background()

	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	stats, err := c.repo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	head, hasHead, err := c.journal.Head(ctx)
	if err != nil {
		return fmt.Errorf("failed to read journal head: %w", err)
	}

	headerStyle.Println("Journal")
	if hasHead {
		fmt.Printf("  Head:        block %d, index %d\n", head.Block, head.Index)
	} else {
		fmt.Println("  Head:        empty")
	}
	fmt.Printf("  Checkpoint:  block %d, index %d\n", stats.LastAppliedBlock, stats.LastAppliedIndex)
	if hasHead && head.Block > stats.LastAppliedBlock {
		warnStyle.Printf("  Lag:         %d blocks behind\n", head.Block-stats.LastAppliedBlock)
	} else {
		okStyle.Println("  Lag:         caught up")
	}

	fmt.Println()
	headerStyle.Println("Replica")
	fmt.Printf("  Wills:         %d total, %d active, %d executed\n", stats.TotalWills, stats.ActiveWills, stats.ExecutedWills)
	fmt.Printf("  Beneficiaries: %d\n", stats.Beneficiaries)
	fmt.Printf("  Documents:     %d\n", stats.Documents)
	fmt.Printf("  Locked:        %s\n", stats.LockedTotal)
	fmt.Printf("  Flexible:      %s\n", stats.FlexibleTotal)
	fmt.Printf("  Distributed:   %s\n", stats.DistributedTotal)

	return nil
}
