package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rebs-build/rebs/internal/planner"
)

var generateClangdCmd = &cobra.Command{
	Use:   "generate-clangd [packages...]",
	Short: "Write a .clangd file for the given packages (or --all)",
	RunE:  runGenerateClangd,
}

func init() {
	rootCmd.AddCommand(generateClangdCmd)
}

func runGenerateClangd(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	names := inputPackageNames(ctx, cmd, args)
	return planner.New(ctx).GenerateClangd(names)
}
