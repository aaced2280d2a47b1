package willctl

import (
	"context"

	"github.com/spf13/cobra"

	"willvault/internal/identity"
)

var (
	docName     string
	docCategory string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage document metadata attached to a will",
	Long: `Attach or detach document metadata. Only the content hash and
descriptors are journaled; the content itself stays in external storage.`,
}

var docsAddCmd = &cobra.Command{
	Use:   "add <testator> <hash>",
	Short: "Attach document metadata",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDocsAdd(args[0], args[1]); err != nil {
			checkError(err)
		}
	},
}

var docsRemoveCmd = &cobra.Command{
	Use:   "remove <testator> <hash>",
	Short: "Detach a document by hash",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDocsRemove(args[0], args[1]); err != nil {
			checkError(err)
		}
	},
}

func init() {
	docsAddCmd.Flags().StringVar(&docName, "name", "", "Document name (required)")
	docsAddCmd.Flags().StringVar(&docCategory, "category", "", "Document category")
	_ = docsAddCmd.MarkFlagRequired("name")

	docsCmd.AddCommand(docsAddCmd)
	docsCmd.AddCommand(docsRemoveCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsAdd(rawTestator, hash string) error {
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

	if err := engine.AddDocument(ctx, testator, hash, docName, docCategory); err != nil {
		return err
	}

	okStyle.Printf("✅ Attached %q (%s)\n", docName, hash)
	return nil
}

func runDocsRemove(rawTestator, hash string) error {
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

	if err := engine.RemoveDocument(ctx, testator, hash); err != nil {
		return err
	}

	okStyle.Printf("✅ Detached %s\n", hash)
	return nil
}
