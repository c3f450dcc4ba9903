package game

import "fmt"

// ErrorCode is a stable, machine-checkable reason attached to every game
// error. Clients branch on the code; the message is for humans.
type ErrorCode string

const (
	ErrNotFound            ErrorCode = "not_found"
	ErrUnauthorized        ErrorCode = "unauthorized"
	ErrInvalidState        ErrorCode = "invalid_state"
	ErrGameInProgress      ErrorCode = "game_in_progress"
	ErrUnknownPlayer       ErrorCode = "unknown_player"
	ErrDuplicateSubmission ErrorCode = "duplicate_submission"
	ErrAllocationExhausted ErrorCode = "allocation_exhausted"
	ErrStorageUnavailable  ErrorCode = "storage_unavailable"
)

// Error is a recoverable game-level failure. It is surfaced only to the
// originating connection as a targeted error event and never crashes room
// processing.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a game error with a formatted human message.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err, wrapping unexpected failures (e.g.
// storage connectivity loss) as storage_unavailable so the client sees a
// retryable reason instead of a crash.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*Error); ok {
		return ge
	}
	return &Error{Code: ErrStorageUnavailable, Message: err.Error()}
}
