package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rebs-build/rebs/internal/scratch"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [packages...]",
	Short: "Remove the scratch directory and output for the given packages",
	RunE:  runClean,
}

var deepCleanCmd = &cobra.Command{
	Use:   "deep-clean",
	Short: "Remove the entire scratch root, every optimization level included",
	RunE:  runDeepClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(deepCleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	names := inputPackageNames(ctx, cmd, args)

	for _, name := range names {
		meta, err := ctx.Metadata.Load(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rebs: %s: %v\n", name, err)
			continue
		}
		if err := scratch.RemoveIfExists(meta.ScratchDir); err != nil {
			fmt.Fprintf(os.Stderr, "rebs: %s: %v\n", name, err)
		}
		_ = os.Remove(meta.OutputPath)
	}
	return ctx.Flush()
}

func runDeepClean(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	return scratch.RemoveIfExists(ctx.Layout.Root())
}
