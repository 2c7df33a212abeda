// Package configeval invokes the external jsonnet evaluator and parses its
// JSON output into a generic tree. spec.md §1 explicitly excludes the
// configuration DSL evaluator itself from the core's responsibilities; this
// package is the thin child-process boundary the core uses to consume
// whatever that external collaborator produces. It is adapted from the
// teacher's internal/claude/claude.go Invoker: build args, run with
// captured output, parse JSON, wrap failures with the captured stderr.
package configeval

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Tree is the already-evaluated, JSON-shaped configuration object spec.md
// §1 and §4.5 describe: the core never parses the jsonnet DSL itself, only
// this tree.
type Tree map[string]any

// Evaluator invokes an external jsonnet binary to turn a .jsonnet file into
// a JSON tree.
type Evaluator struct {
	// BinaryPath is the jsonnet executable to invoke. Defaults to "jsonnet"
	// if empty.
	BinaryPath string
	// StagingDir receives the evaluator's -o output (rebs.json). The source
	// file is handed to the evaluator as is; no concatenated input file
	// (temp.jsonnet) is staged.
	StagingDir string
}

// Options carries the external variables spec.md §6 lists:
// optimization_level, target_architecture, target_os.
type Options struct {
	OptimizationLevel  string
	TargetArchitecture string
	TargetOS           string
}

func (e *Evaluator) binary() string {
	if e.BinaryPath != "" {
		return e.BinaryPath
	}
	return "jsonnet"
}

// Evaluate runs the evaluator against sourcePath (a .jsonnet file) and
// returns the resulting JSON tree. A non-zero exit or invalid JSON output
// is reported as ConfigEvalFailure (spec.md §7); a missing sourcePath is
// reported as ConfigMissing.
func (e *Evaluator) Evaluate(sourcePath string, opts Options) (Tree, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("configeval: %w: %s", ErrConfigMissing, sourcePath)
	}

	if err := os.MkdirAll(e.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("configeval: staging dir: %w", err)
	}
	outPath := filepath.Join(e.StagingDir, "rebs.json")

	args := []string{
		"--ext-str", "optimization_level=" + opts.OptimizationLevel,
		"--ext-str", "target_architecture=" + opts.TargetArchitecture,
		"--ext-str", "target_os=" + opts.TargetOS,
		"-o", outPath,
		sourcePath,
	}

	cmd := exec.Command(e.binary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("configeval: %w: %s\n%s", ErrConfigEvalFailure, sourcePath, string(output))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("configeval: %w: reading evaluator output: %v", ErrConfigEvalFailure, err)
	}

	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("configeval: %w: evaluator output is not a JSON object: %v", ErrConfigEvalFailure, err)
	}
	return tree, nil
}
