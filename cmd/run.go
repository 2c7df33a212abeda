package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rebs-build/rebs/internal/planner"
)

var runCmd = &cobra.Command{
	Use:   "run [packages...]",
	Short: "Build the given packages, then run them (the default action)",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, names, planOK, err := planBuild(cmd, args)
	if err != nil {
		return err
	}

	p := planner.New(ctx)
	if err := p.EmitRunCommands(names); err != nil {
		return err
	}
	return executeQueue(ctx, planOK)
}
