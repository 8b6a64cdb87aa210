package errors

import "fmt"

// ErrorCode represents a winnow error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // bad parameters from a caller
	ErrNotFound          ErrorCode = "NOT_FOUND"          // missing file or record
	ErrIOFailed          ErrorCode = "IO_FAILED"          // read/write/remove/rename failure after retries
	ErrRewriteFailed     ErrorCode = "REWRITE_FAILED"     // log rewrite aborted, original preserved
	ErrCheckpointCorrupt ErrorCode = "CHECKPOINT_CORRUPT" // unreadable or stale checkpoint
	ErrInternal          ErrorCode = "INTERNAL"           // unexpected internal error
)

// WinnowError is a structured error with a code and optional details.
type WinnowError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *WinnowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates an error for invalid caller parameters.
func NewInvalidRequest(msg string) *WinnowError {
	return &WinnowError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for a missing file or record.
func NewNotFound(what string) *WinnowError {
	return &WinnowError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("not found: %s", what),
		Details: map[string]any{"target": what},
	}
}

// NewIOFailed wraps a persistent-storage failure.
func NewIOFailed(op string, err error) *WinnowError {
	return &WinnowError{
		Code:    ErrIOFailed,
		Message: fmt.Sprintf("%s: %v", op, err),
		Details: map[string]any{"op": op},
	}
}

// NewRewriteFailed creates an error for an aborted log rewrite. The original
// log is untouched (or restored from backup) whenever this is returned.
func NewRewriteFailed(err error) *WinnowError {
	return &WinnowError{
		Code:    ErrRewriteFailed,
		Message: fmt.Sprintf("rewrite aborted: %v", err),
	}
}

// NewCheckpointCorrupt creates an error for an unusable checkpoint. Callers
// treat this as "no checkpoint" and restart from the beginning.
func NewCheckpointCorrupt(reason string) *WinnowError {
	return &WinnowError{
		Code:    ErrCheckpointCorrupt,
		Message: fmt.Sprintf("checkpoint unusable: %s", reason),
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *WinnowError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &WinnowError{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if an error is a WinnowError with the given code.
func Is(err error, code ErrorCode) bool {
	if wErr, ok := err.(*WinnowError); ok {
		return wErr.Code == code
	}
	return false
}
