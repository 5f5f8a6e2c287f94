// Package status contains the canonical status codes used to classify
// errors reported by the conferencing service.
package status

import (
	"errors"
	"fmt"
)

// Code is a canonical status code.
type Code int

// Below are the canonical status codes, numbered as the standard RPC taxonomy.
const (
	OK Code = iota
	Cancelled
	Unknown
	InvalidArgument
	DeadlineExceeded
	NotFound
	AlreadyExists
	PermissionDenied
	ResourceExhausted
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	Unavailable
	DataLoss
	Unauthenticated
)

var names = [...]string{
	OK:                 "OK",
	Cancelled:          "CANCELLED",
	Unknown:            "UNKNOWN",
	InvalidArgument:    "INVALID_ARGUMENT",
	DeadlineExceeded:   "DEADLINE_EXCEEDED",
	NotFound:           "NOT_FOUND",
	AlreadyExists:      "ALREADY_EXISTS",
	PermissionDenied:   "PERMISSION_DENIED",
	ResourceExhausted:  "RESOURCE_EXHAUSTED",
	FailedPrecondition: "FAILED_PRECONDITION",
	Aborted:            "ABORTED",
	OutOfRange:         "OUT_OF_RANGE",
	Unimplemented:      "UNIMPLEMENTED",
	Internal:           "INTERNAL",
	Unavailable:        "UNAVAILABLE",
	DataLoss:           "DATA_LOSS",
	Unauthenticated:    "UNAUTHENTICATED",
}

// String returns the canonical name of the code.
func (c Code) String() string {
	if c < 0 || int(c) >= len(names) {
		return fmt.Sprintf("CODE(%d)", int(c))
	}
	return names[c]
}

// FromString maps a canonical status name to its Code. Names outside the
// table map to Unknown.
func FromString(s string) Code {
	switch s {
	case "OK":
		return OK
	case "CANCELLED":
		return Cancelled
	case "UNKNOWN":
		return Unknown
	case "INVALID_ARGUMENT":
		return InvalidArgument
	case "DEADLINE_EXCEEDED":
		return DeadlineExceeded
	case "NOT_FOUND":
		return NotFound
	case "ALREADY_EXISTS":
		return AlreadyExists
	case "PERMISSION_DENIED":
		return PermissionDenied
	case "UNAUTHENTICATED":
		return Unauthenticated
	case "RESOURCE_EXHAUSTED":
		return ResourceExhausted
	case "FAILED_PRECONDITION":
		return FailedPrecondition
	case "ABORTED":
		return Aborted
	case "OUT_OF_RANGE":
		return OutOfRange
	case "UNIMPLEMENTED":
		return Unimplemented
	case "INTERNAL":
		return Internal
	case "UNAVAILABLE":
		return Unavailable
	case "DATA_LOSS":
		return DataLoss
	default:
		return Unknown
	}
}

// Error is an error classified with a canonical status code.
type Error struct {
	Code    Code
	Message string
}

// New creates a new Error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of err. nil is OK and errors that carry no status
// are Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Unknown
}
