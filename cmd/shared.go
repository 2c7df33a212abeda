package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rebs-build/rebs/internal/buildctx"
	"github.com/rebs-build/rebs/internal/config"
	"github.com/rebs-build/rebs/internal/configeval"
	"github.com/rebs-build/rebs/internal/registry"
	"github.com/rebs-build/rebs/internal/scratch"
)

// newContext resolves the global configuration and wires a fresh
// buildctx.Context from the command's persistent flags, per spec.md §6.
func newContext(cmd *cobra.Command) (*buildctx.Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("rebs: %w", err)
	}

	opt, _ := cmd.Flags().GetString("opt")
	targetOS, _ := cmd.Flags().GetString("os")
	targetArch, _ := cmd.Flags().GetString("arch")
	verbose, _ := cmd.Flags().GetBool("verbose")

	layout := scratch.New(wd, opt)
	// Each invocation stages its evaluated jsonnet under a run-unique
	// subdirectory so two interleaved manual invocations against the
	// same scratch root never clobber each other's rebs.json
	// (best-effort, not a lock — spec.md §1 still disclaims cross-process
	// locking of build-state files).
	stagingDir := filepath.Join(layout.Current(), "run-"+uuid.NewString())

	cfg, err := config.Load(config.Options{
		StagingDir:         stagingDir,
		Evaluator:          &configeval.Evaluator{StagingDir: stagingDir},
		TargetArchitecture: targetArch,
		TargetOS:           targetOS,
	})
	if err != nil {
		return nil, fmt.Errorf("rebs: loading configuration: %w", err)
	}

	ctx := buildctx.New(buildctx.Options{
		WorkDir:            wd,
		OptimizationLevel:  opt,
		TargetArchitecture: targetArch,
		TargetOS:           targetOS,
		Config:             cfg,
		Evaluator:          &configeval.Evaluator{StagingDir: stagingDir},
		Logger:             os.Stderr,
	})
	ctx.Queue.Verbose = verbose
	return ctx, nil
}

// inputPackageNames resolves the command's package arguments (or --all)
// into short package names, registering each resolved path under its
// package_name_from_path name so the metadata builder (C5) can find it by
// name, per spec.md §4.4. The registration overwrites any same-named
// package found by the directory scan, so an explicitly supplied path wins.
func inputPackageNames(ctx *buildctx.Context, cmd *cobra.Command, args []string) []string {
	all, _ := cmd.Flags().GetBool("all")
	hasUniverse := false
	if wd, err := os.Getwd(); err == nil {
		if _, statErr := os.Stat(filepath.Join(wd, scratch.UniverseFile)); statErr == nil {
			hasUniverse = true
		}
	}

	paths := ctx.Packages.EnumerateInputPackages(args, all, hasUniverse)
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		name := registry.PackageNameFromPath(p)
		ctx.Packages.Register(name, p)
		names = append(names, name)
	}
	return names
}
