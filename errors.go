package chromectl

import (
	"errors"
	"fmt"
)

// ErrTargetNotFound means the target id is stale, the tab closed between
// discovery and use. Re-discover and retry.
var ErrTargetNotFound = errors.New("target not found")

// ErrSessionInactive means the debugging session is detached or its target
// is gone, commands can no longer be issued through it.
var ErrSessionInactive = errors.New("session is not active")

// EvalError is a thrown exception or a rejected promise from the evaluated
// expression.
type EvalError struct {
	// Description of the exception, such as "Error: boom"
	Description string
	// Details is the raw exceptionDetails JSON from the browser
	Details string
}

// Error interface
func (e *EvalError) Error() string {
	return "eval: " + e.Description
}

// Is interface
func (e *EvalError) Is(target error) bool {
	_, ok := target.(*EvalError)
	return ok
}

// Stages of the full page screenshot sequence, in execution order.
const (
	StageLayoutMetrics    = "layout-metrics"
	StageSaveViewport     = "save-viewport"
	StageOverrideViewport = "override-viewport"
	StageCapture          = "capture"
	StageRestoreViewport  = "restore-viewport"
)

// ScreenshotError tells which stage of the capture sequence failed, so the
// restore-on-failure guarantee can be verified independently.
type ScreenshotError struct {
	Stage string
	Err   error
}

// Error interface
func (e *ScreenshotError) Error() string {
	return fmt.Sprintf("screenshot failed at %s: %v", e.Stage, e.Err)
}

// Unwrap interface
func (e *ScreenshotError) Unwrap() error {
	return e.Err
}
