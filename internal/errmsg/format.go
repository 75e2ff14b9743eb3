// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Setup
	OpConfigLoad Op = "load configuration"
	OpStateOpen  Op = "open state database"
	OpLogSetup   Op = "set up logging"

	// Host surface
	OpSourceConnect Op = "connect to player"
	OpBridgeListen  Op = "start browser bridge"

	// Last.fm operations
	OpLastfmAuth       Op = "authenticate with Last.fm"
	OpLastfmUnlink     Op = "unlink Last.fm account"
	OpLastfmScrobble   Op = "scrobble track"
	OpLastfmNowPlaying Op = "update now playing"

	// Queue operations
	OpPendingLoad  Op = "load pending scrobbles"
	OpPendingFlush Op = "flush pending scrobbles"
	OpPendingDrop  Op = "drop pending scrobble"
	OpHistoryLoad  Op = "load scrobble history"

	// Runtime
	OpObserverRun Op = "run track observer"
	OpStatusView  Op = "run status view"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Error wraps err so that its message is the formatted one. Returns nil for
// a nil err.
func Error(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

type opError struct {
	op  Op
	err error
}

func (e *opError) Error() string { return Format(e.op, e.err) }

func (e *opError) Unwrap() error { return e.err }
