// Package cmd implements the CLI front door (C12): the cobra command tree
// for REBS's nine invocation actions, persistent flags, and the plumbing
// that turns parsed flags into a buildctx.Context and a planner run.
// Adapted from the teacher's cmd/root.go (persistent flags registered in
// init, cobra.OnInitialize wiring env-prefixed config, RunE on the root
// command providing a default action) — generalized from quasar's
// single-purpose REPL launcher to REBS's action-dispatching front door.
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rebs",
	Short: "Incremental build, link, and run for C/C++ packages",
	Long:  "REBS builds, links, and optionally runs packages — directory trees of source code — with minimal per-package configuration.",
	RunE:  runRun,
}

// Execute runs the command tree and exits the process with spec.md §6's
// exit code convention: 0 on success, -1 on parse or build failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("all", false, "operate on every registered package")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "stream command output directly instead of a progress line")
	rootCmd.PersistentFlags().Bool("update", false, "force re-fetch of cached third-party repositories (update-third-party only)")
	rootCmd.PersistentFlags().String("os", runtime.GOOS, "target operating system (target_os)")
	rootCmd.PersistentFlags().String("arch", runtime.GOARCH, "target architecture (target_architecture)")
	rootCmd.PersistentFlags().String("opt", "fast", "optimization level: debug, fast, or optimized")
}
