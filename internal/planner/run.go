package planner

import (
	"fmt"

	"github.com/rebs-build/rebs/internal/metadata"
	"github.com/rebs-build/rebs/internal/placeholder"
	"github.com/rebs-build/rebs/internal/queue"
)

// EmitRunCommands is the separate phase spec.md §4.8 describes, run after
// BuildPackages: one Run command per deduplicated application input, or a
// single expanded global-run-command if the global configuration sets
// one. "Nothing to run" is a user error (ErrNothingToRun), not a crash.
func (p *Planner) EmitRunCommands(appNames []string) error {
	if p.Ctx.Config.GlobalRunCommand != "" {
		scope := placeholder.NewScope(p.Ctx.Placeholders)
		p.Ctx.Queue.Enqueue(queue.Run, queue.Command{
			Template: scope.Expand(p.Ctx.Config.GlobalRunCommand),
		})
		return nil
	}
	return p.emitRunCommandsForApps(appNames)
}

// EmitTestCommands is the Test action's variant of EmitRunCommands: it
// always runs the resolved application inputs directly and never falls
// back to the global run command, since that command has no obvious
// relationship to an arbitrary package selection (Test action semantics
// are an Open Question in spec.md §6; see DESIGN.md).
func (p *Planner) EmitTestCommands(appNames []string) error {
	return p.emitRunCommandsForApps(appNames)
}

func (p *Planner) emitRunCommandsForApps(appNames []string) error {
	seen := make(map[string]bool, len(appNames))
	emitted := 0
	for _, name := range appNames {
		if seen[name] {
			continue
		}
		seen[name] = true

		meta, err := p.Ctx.Metadata.Load(name)
		if err != nil || meta.Type != metadata.Application {
			continue
		}
		p.Ctx.Queue.Enqueue(queue.Run, queue.Command{
			Template:  quote(meta.OutputPath),
			PackageID: meta.PackageID,
		})
		emitted++
	}

	if emitted == 0 {
		return fmt.Errorf("run: %w", ErrNothingToRun)
	}
	return nil
}
