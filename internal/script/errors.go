package script

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by operations that need a loaded script.
	ErrNotLoaded = errors.New("no script loaded")

	// ErrTimeout is returned when the execution watchdog interrupts guest
	// code.
	ErrTimeout = errors.New("execution timed out")
)

// Stage names the load step that failed.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageWrap    Stage = "wrap"
	StageEval    Stage = "eval"
	StageAwait   Stage = "await"
)

// LoadError reports a failed load. The previously loaded script, if any, is
// still in place when a LoadError is returned.
type LoadError struct {
	Stage Stage
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("script load failed (%s): %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
