package planner

import "errors"

// ErrNothingToRun is returned by EmitRunCommands when no application
// input and no global run command were configured.
var ErrNothingToRun = errors.New("nothing to run")
