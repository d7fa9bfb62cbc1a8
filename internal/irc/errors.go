package irc

import (
	"fmt"
)

// ErrorKind categorizes a failed chat operation. Kinds are themselves
// errors so callers can test with errors.Is(err, irc.NicknameConflict).
type ErrorKind int

const (
	ConnectionFailure ErrorKind = iota + 1
	NicknameConflict
	InvalidArgument
	InsufficientPrivileges
	RoomNotJoined
	NotFound
	ProtocolError
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionFailure:
		return "connection_failure"
	case NicknameConflict:
		return "nickname_conflict"
	case InvalidArgument:
		return "invalid_argument"
	case InsufficientPrivileges:
		return "insufficient_privileges"
	case RoomNotJoined:
		return "room_not_joined"
	case NotFound:
		return "not_found"
	case ProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("error_kind(%d)", int(k))
	}
}

func (k ErrorKind) Error() string {
	return k.String()
}

// OperationError is returned by every synchronous adapter operation.
type OperationError struct {
	Op      string
	Kind    ErrorKind
	Code    string // numeric reply that caused the failure, if any
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is matches an ErrorKind target against the error's kind.
func (e *OperationError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func opError(op string, kind ErrorKind, message string) *OperationError {
	return &OperationError{Op: op, Kind: kind, Message: message}
}
