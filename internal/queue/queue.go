// Package queue implements the ordered, stage-grouped command queue and
// bounded-parallel scheduler spec.md §4.7 describes (C7): Compile,
// LinkLibrary, LinkApplication, CopyAssets, and Run stages run in that
// order; within a non-Run stage, commands run across a worker pool sized
// to the configured parallelism. It is grounded on the teacher's
// internal/nebula worker pool discipline, generalized from nebula's
// impact-scored continuous dispatch to this spec's fixed five-stage
// pipeline, and reaches for github.com/sourcegraph/conc/pool — already in
// the retrieval pack via cristian1one-virtual-vectorfs — for the bounded
// goroutine pool itself.
package queue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/rebs-build/rebs/internal/ansi"
	"github.com/rebs-build/rebs/internal/depfile"
	"github.com/rebs-build/rebs/internal/executor"
	"github.com/rebs-build/rebs/internal/timestamp"
)

// Stage is one of the five ordered pipeline stages; lower values run
// first.
type Stage int

const (
	Compile Stage = iota
	LinkLibrary
	LinkApplication
	CopyAssets
	Run
)

func (s Stage) String() string {
	switch s {
	case Compile:
		return "compile"
	case LinkLibrary:
		return "link-library"
	case LinkApplication:
		return "link-application"
	case CopyAssets:
		return "copy-assets"
	case Run:
		return "run"
	default:
		return "unknown"
	}
}

var stageOrder = []Stage{Compile, LinkLibrary, LinkApplication, CopyAssets, Run}

// DepsFilePlaceholder is the literal the planner (C8) leaves
// unsubstituted in Compile commands; each worker substitutes its own
// unique path at dispatch time.
const DepsFilePlaceholder = "${deps file}"

// Command is a deferred, (mostly) placeholder-substituted command ready
// for the scheduler.
type Command struct {
	Template        string
	PackageID       int
	SourceFile      string
	DestinationFile string
}

// Queue is the stage → pending-command map plus the collaborators the
// scheduler needs: a scratch-directory resolver (for per-worker deps
// files), a per-package dependency store resolver, and a timestamp cache.
type Queue struct {
	Parallelism int
	Verbose     bool
	Logger      io.Writer

	ScratchDir func(packageID int) string
	DepStore   func(packageID int) *depfile.Store
	Timestamps *timestamp.Cache

	mu     sync.Mutex
	stages map[Stage][]Command

	termMu sync.Mutex // serializes the same-terminal-line progress indicator
}

// New creates an empty Queue. parallelism is the worker count for
// non-sequential stages (spec.md §4.7: "default hardware concurrency").
func New(parallelism int, scratchDir func(int) string, depStore func(int) *depfile.Store, ts *timestamp.Cache) *Queue {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Queue{
		Parallelism: parallelism,
		ScratchDir:  scratchDir,
		DepStore:    depStore,
		Timestamps:  ts,
		stages:      make(map[Stage][]Command),
	}
}

func (q *Queue) logger() io.Writer {
	if q.Logger != nil {
		return q.Logger
	}
	return os.Stderr
}

// Enqueue appends cmd to stage's pending list.
func (q *Queue) Enqueue(stage Stage, cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stages[stage] = append(q.stages[stage], cmd)
}

// Pending reports the number of commands queued for stage.
func (q *Queue) Pending(stage Stage) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.stages[stage])
}

// RunAll iterates stages in ascending order, executing each non-empty one.
// It returns false as soon as a stage fails; no later stage is started.
func (q *Queue) RunAll(ctx context.Context) bool {
	for _, stage := range stageOrder {
		q.mu.Lock()
		cmds := q.stages[stage]
		q.mu.Unlock()
		if len(cmds) == 0 {
			continue
		}
		if ok := q.executeStage(ctx, stage, cmds); !ok {
			return false
		}
	}
	return true
}

// executeStage runs a single stage's commands, sequentially for Run (and
// any stage in verbose mode) or across a bounded worker pool otherwise.
func (q *Queue) executeStage(ctx context.Context, stage Stage, cmds []Command) bool {
	if stage == Run || q.Verbose {
		return q.executeSequential(ctx, cmds)
	}
	return q.executeParallel(ctx, stage, cmds)
}

func (q *Queue) executeSequential(ctx context.Context, cmds []Command) bool {
	ok := true
	for _, cmd := range cmds {
		if !executor.Execute(ctx, cmd.Template, os.Stdout) {
			ok = false
		}
	}
	return ok
}

func (q *Queue) executeParallel(ctx context.Context, stage Stage, cmds []Command) bool {
	n := min(len(cmds), q.Parallelism)
	if n < 1 {
		n = 1
	}

	slots := make(chan int, n)
	for i := 0; i < n; i++ {
		slots <- i
	}

	var success atomic.Bool
	success.Store(true)
	var errBuf bytes.Buffer
	var errMu sync.Mutex

	total := len(cmds)
	var done atomic.Int64

	p := pool.New().WithContext(ctx).WithMaxGoroutines(n)
	for _, cmd := range cmds {
		cmd := cmd
		p.Go(func(ctx context.Context) error {
			slot := <-slots
			defer func() { slots <- slot }()

			q.runOne(ctx, stage, cmd, slot, &success, &errBuf, &errMu)

			n := done.Add(1)
			q.renderProgress(stage, int(n), total)
			return nil
		})
	}
	_ = p.Wait()

	if !success.Load() {
		fmt.Fprint(q.logger(), errBuf.String())
		return false
	}
	return true
}

func (q *Queue) runOne(ctx context.Context, stage Stage, cmd Command, slot int, success *atomic.Bool, errBuf *bytes.Buffer, errMu *sync.Mutex) {
	template := cmd.Template
	depsPath := ""
	if stage == Compile && strings.Contains(template, DepsFilePlaceholder) {
		depsPath = filepath.Join(q.ScratchDir(cmd.PackageID), fmt.Sprintf("deps%d", slot))
		template = strings.ReplaceAll(template, DepsFilePlaceholder, quoteArg(depsPath))
	}

	var buf bytes.Buffer
	ok := executor.Execute(ctx, template, &buf)
	if !ok {
		success.Store(false)
		errMu.Lock()
		errBuf.Write(buf.Bytes())
		errMu.Unlock()
		return
	}

	if stage != Compile || q.DepStore == nil {
		return
	}
	store := q.DepStore(cmd.PackageID)
	if depsPath != "" {
		data, err := os.ReadFile(depsPath)
		if err != nil {
			store.SetDependencies(cmd.DestinationFile, nil)
			return
		}
		store.SetDependencies(cmd.DestinationFile, depfile.ParseCompilerDepFile(data))
	} else {
		store.SetDependencies(cmd.DestinationFile, []string{cmd.SourceFile})
	}
}

func (q *Queue) renderProgress(stage Stage, done, total int) {
	q.termMu.Lock()
	defer q.termMu.Unlock()
	fmt.Fprintf(q.logger(), "\r%s%s: %d/%d", ansi.ClearLine, stage, done, total)
	if done == total {
		fmt.Fprintln(q.logger())
	}
}

func quoteArg(path string) string {
	return `"` + path + `"`
}
