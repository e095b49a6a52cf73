//go:build windows

package launcher

import "errors"

// StopResult reports what happened to one managed browser process.
type StopResult struct {
	PID int
	Err error
}

// StopAll is not supported on windows, use the task manager or taskkill.
func StopAll() ([]StopResult, error) {
	return nil, errors.New("launcher: stop is not supported on windows")
}
