package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rebs-build/rebs/internal/planner"
)

var testCmd = &cobra.Command{
	Use:   "test [packages...]",
	Short: "Build the given packages, then run each resolved application",
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx, names, planOK, err := planBuild(cmd, args)
	if err != nil {
		return err
	}

	p := planner.New(ctx)
	if err := p.EmitTestCommands(names); err != nil {
		return err
	}
	return executeQueue(ctx, planOK)
}
