// status.go: sum-type result code shared by writers, rotation strategies and sinks
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

// Code enumerates the outcomes a writer, rotation strategy or sink can
// report. Full and Empty are flow-control signals, not failures: Full
// means "try again after rotating or waiting", Empty means "nothing to
// do right now".
type Code int

const (
	CodeOK Code = iota
	CodeNotFound
	CodeCorruption
	CodeNotSupported
	CodeInvalidArgument
	CodeIOError
	CodeFull
	CodeEmpty
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "NotFound"
	case CodeCorruption:
		return "Corruption"
	case CodeNotSupported:
		return "NotSupported"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeIOError:
		return "IOError"
	case CodeFull:
		return "Full"
	case CodeEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Status is a small sum type for results that are routinely not-an-error
// (Full, Empty) alongside results that are (IOError, Corruption, ...). It
// satisfies the error interface so it composes with the stdlib errors
// package, but callers on the hot path should check Code()/IsFull()/
// IsEmpty() directly rather than going through Error().
type Status struct {
	code Code
	msg  string
	msg2 string
}

// OK is the zero-value, successful Status.
var OK = Status{code: CodeOK}

func NotFound(msg, msg2 string) Status       { return Status{code: CodeNotFound, msg: msg, msg2: msg2} }
func Corruption(msg, msg2 string) Status     { return Status{code: CodeCorruption, msg: msg, msg2: msg2} }
func NotSupported(msg, msg2 string) Status   { return Status{code: CodeNotSupported, msg: msg, msg2: msg2} }
func InvalidArgument(msg, msg2 string) Status {
	return Status{code: CodeInvalidArgument, msg: msg, msg2: msg2}
}
func IOError(msg, msg2 string) Status { return Status{code: CodeIOError, msg: msg, msg2: msg2} }

// Full reports "try again", optionally with a reason (e.g. "file limit
// reached").
func Full(msg string) Status { return Status{code: CodeFull, msg: msg} }

// Empty reports "nothing available right now".
func Empty(msg string) Status { return Status{code: CodeEmpty, msg: msg} }

func (s Status) Code() Code { return s.code }
func (s Status) Ok() bool   { return s.code == CodeOK }
func (s Status) IsFull() bool            { return s.code == CodeFull }
func (s Status) IsEmpty() bool           { return s.code == CodeEmpty }
func (s Status) IsNotFound() bool        { return s.code == CodeNotFound }
func (s Status) IsCorruption() bool      { return s.code == CodeCorruption }
func (s Status) IsIOError() bool         { return s.code == CodeIOError }
func (s Status) IsNotSupportedError() bool { return s.code == CodeNotSupported }
func (s Status) IsInvalidArgument() bool { return s.code == CodeInvalidArgument }

// Error implements the error interface so Status can flow through
// standard Go error-handling paths; IsFull/IsEmpty results are not true
// errors and callers on those paths should branch before calling Error().
func (s Status) Error() string {
	if s.code == CodeOK {
		return "OK"
	}
	if s.msg == "" {
		return s.code.String()
	}
	if s.msg2 == "" {
		return s.code.String() + ": " + s.msg
	}
	return s.code.String() + ": " + s.msg + ": " + s.msg2
}
