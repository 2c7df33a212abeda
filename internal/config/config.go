// Package config loads REBS's global configuration (spec.md §3
// GlobalConfig, §4.13): a single jsonnet file, evaluated through
// internal/configeval, then layered with environment overrides through
// viper the same way the teacher layers .quasar.yaml and QUASAR_* env vars.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/rebs-build/rebs/internal/configeval"
)

// EnvOverride is the environment variable that, when set, points at the
// global config file instead of the home-directory default.
const EnvOverride = "REBS_CONFIG"

const defaultConfigName = ".rebs.jsonnet"

// GlobalConfig is the evaluated, defaulted, env-overridden global
// configuration (spec.md §3).
type GlobalConfig struct {
	ParallelTasks      int      `mapstructure:"parallel_tasks"`
	PackageDirectories []string `mapstructure:"package_directories"`
	GlobalRunCommand   string   `mapstructure:"global_run_command"`

	// Path is the resolved global config file path, set regardless of
	// whether the file exists. The metadata builder (C5) folds its mtime
	// into every package's MetadataTimestamp (spec.md §3).
	Path string
	// Tree is the raw evaluated global config, or an empty tree if the
	// file doesn't exist. The metadata builder falls back to it when a
	// package's own config file is absent, matching
	// _examples/original_source/source/config.cc's
	// `if (!DoesFileExist(config_path)) return global_config_file;`.
	Tree configeval.Tree
}

// Options controls where Load looks and stages its work.
type Options struct {
	// HomeDir overrides the user's home directory (tests only); defaults
	// to os.UserHomeDir().
	HomeDir string
	// StagingDir receives the evaluator output (rebs.json); the config
	// file itself is evaluated in place, with no staged temp.jsonnet copy.
	StagingDir string
	// Evaluator is the jsonnet child-process wrapper. A nil Evaluator
	// uses the default "jsonnet" binary.
	Evaluator *configeval.Evaluator
	// TargetArchitecture and TargetOS are the --ext-str values passed
	// through to the evaluator; TargetOS defaults to runtime.GOOS. The
	// global config is evaluated with an empty optimization_level.
	TargetArchitecture string
	TargetOS           string
}

// Load resolves the global config path (REBS_CONFIG, else
// <home>/.rebs.jsonnet), evaluates it, and layers REBS_* environment
// overrides over the defaults spec.md §6 names: parallel_tasks,
// package_directories, global_run_command. A missing config file is not an
// error — the defaults alone are returned.
func Load(opts Options) (GlobalConfig, error) {
	path, err := resolvePath(opts.HomeDir)
	if err != nil {
		return GlobalConfig{}, err
	}

	viper.SetDefault("parallel_tasks", runtime.NumCPU())
	viper.SetDefault("package_directories", []string{})
	viper.SetDefault("global_run_command", "")

	tree := configeval.Tree{}
	if _, statErr := os.Stat(path); statErr == nil {
		evaluated, evalErr := evaluate(path, opts)
		if evalErr != nil {
			return GlobalConfig{}, evalErr
		}
		tree = evaluated
		mergeTree(tree)
	}

	viper.SetEnvPrefix("REBS")
	viper.AutomaticEnv()

	var cfg GlobalConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return GlobalConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Path = path
	cfg.Tree = tree
	return cfg, nil
}

func resolvePath(homeOverride string) (string, error) {
	if p := os.Getenv(EnvOverride); p != "" {
		return p, nil
	}
	home := homeOverride
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		} else if h := os.Getenv("HOME"); h != "" {
			home = h
		} else if h := os.Getenv("USERPROFILE"); h != "" {
			home = h
		} else {
			home = "~"
		}
	}
	return filepath.Join(home, defaultConfigName), nil
}

func evaluate(path string, opts Options) (configeval.Tree, error) {
	eval := opts.Evaluator
	if eval == nil {
		eval = &configeval.Evaluator{StagingDir: opts.StagingDir}
	} else if eval.StagingDir == "" {
		eval.StagingDir = opts.StagingDir
	}

	targetOS := opts.TargetOS
	if targetOS == "" {
		targetOS = runtime.GOOS
	}

	return eval.Evaluate(path, configeval.Options{
		TargetArchitecture: opts.TargetArchitecture,
		TargetOS:           targetOS,
	})
}

func mergeTree(tree configeval.Tree) {
	for k, v := range tree {
		viper.Set(k, v)
	}
}
