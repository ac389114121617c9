package live

import (
	"errors"
	"fmt"
)

// Code classifies engine errors for the REST and realtime boundaries.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeInvalidState     Code = "invalid_state"
	CodeForbidden        Code = "forbidden"
	CodeAlreadyJoined    Code = "already_joined"
	CodeNotParticipating Code = "not_participating"
	CodeCapacityExceeded Code = "capacity_exceeded"
	CodePermissionDenied Code = "permission_denied"
	CodeInvalidMessage   Code = "invalid_message"
	CodeMalformed        Code = "malformed"
	CodeRoomUnavailable  Code = "room_unavailable"
)

// Error is a classified engine error. Two errors match under errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidState     = &Error{Code: CodeInvalidState, Message: "operation not valid in current session state"}
	ErrForbidden        = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrAlreadyJoined    = &Error{Code: CodeAlreadyJoined, Message: "already joined this stream"}
	ErrNotParticipating = &Error{Code: CodeNotParticipating, Message: "not currently participating in this stream"}
	ErrCapacityExceeded = &Error{Code: CodeCapacityExceeded, Message: "stream is at maximum capacity"}
	ErrPermissionDenied = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrInvalidMessage   = &Error{Code: CodeInvalidMessage, Message: "invalid message"}
	ErrMalformed        = &Error{Code: CodeMalformed, Message: "malformed frame"}
	ErrRoomUnavailable  = &Error{Code: CodeRoomUnavailable, Message: "room unavailable"}
)

func errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "" for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
