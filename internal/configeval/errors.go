package configeval

import "errors"

// ErrConfigMissing is returned when the requested jsonnet source file does
// not exist.
var ErrConfigMissing = errors.New("configuration file not found")

// ErrConfigEvalFailure is returned when the external evaluator exits
// non-zero or produces output that is not a JSON object.
var ErrConfigEvalFailure = errors.New("configuration evaluation failed")
