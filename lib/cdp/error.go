package cdp

import (
	"encoding/json"
	"fmt"
)

// Error of the remote browser, returned in the response of a command.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error interface
func (e *Error) Error() string {
	data, _ := json.Marshal(e)
	return fmt.Sprintf("cdp.Error: %s", data)
}

// Is interface
func (e *Error) Is(target error) bool {
	// codes like -32000 are shared by many failures, the message is the identity
	err, ok := target.(*Error)
	return ok && e.Message == err.Message
}

// ErrConnClosed means the underlying connection is gone. Every pending and
// every later call on the client fails with it.
type ErrConnClosed struct {
	Details error
}

// Error interface
func (e *ErrConnClosed) Error() string {
	return fmt.Sprintf("cdp connection closed: %v", e.Details)
}

// Is interface
func (e *ErrConnClosed) Is(target error) bool {
	_, ok := target.(*ErrConnClosed)
	return ok
}

// Unwrap interface
func (e *ErrConnClosed) Unwrap() error {
	return e.Details
}

// ErrCtxNotFound is returned when evaluating on a destroyed context
var ErrCtxNotFound = &Error{
	Code:    -32000,
	Message: "Cannot find context with specified id",
}

// ErrTargetNotFound is returned by Target.attachToTarget when the target id is stale
var ErrTargetNotFound = &Error{
	Code:    -32602,
	Message: "No target with given id found",
}

// ErrSessionNotFound is returned when a command carries a session id the browser no longer knows
var ErrSessionNotFound = &Error{
	Code:    -32001,
	Message: "Session with given id not found.",
}
