package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rebs-build/rebs/internal/buildctx"
	"github.com/rebs-build/rebs/internal/planner"
)

var buildCmd = &cobra.Command{
	Use:   "build [packages...]",
	Short: "Compile and link the given packages (or --all)",
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, _, planOK, err := planBuild(cmd, args)
	if err != nil {
		return err
	}
	return executeQueue(ctx, planOK)
}

// planBuild resolves the input packages and walks the build order
// (spec.md §4.8), leaving the resulting commands queued but not executed —
// callers that also need the Run-action phase enqueue those commands
// before calling executeQueue so the whole pipeline runs in one pass. A
// per-package planning failure does not stop other input packages from
// being queued (spec.md §4.8); planOK reflects whether every package
// planned cleanly.
func planBuild(cmd *cobra.Command, args []string) (ctx *buildctx.Context, names []string, planOK bool, err error) {
	ctx, err = newContext(cmd)
	if err != nil {
		return nil, nil, false, err
	}

	names = inputPackageNames(ctx, cmd, args)
	p := planner.New(ctx)
	planOK = p.BuildPackages(names)
	return ctx, names, planOK, nil
}

// executeQueue runs every staged command and flushes persistent state
// regardless of the outcome, then reports failure if either planning or
// execution failed.
func executeQueue(ctx *buildctx.Context, planOK bool) error {
	runOK := ctx.Queue.RunAll(context.Background())
	if err := ctx.Flush(); err != nil {
		return fmt.Errorf("rebs: flushing build state: %w", err)
	}
	if !planOK || !runOK {
		return fmt.Errorf("rebs: one or more packages failed to build")
	}
	return nil
}
