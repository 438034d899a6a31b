package rt

import (
	"errors"
	"fmt"
)

// Code classifies registry errors.
type Code uint16

const (
	UnknownCode Code = iota
	CodeUnknownModule
	CodeCyclicDependency
	CodeVersionMismatch
	CodeUnknownType
	CodeUnknownSlot
	CodeAmbiguousOverload
	CodeNoMatchingOverload
	CodeUnsupportedOperation
	CodeInvalidSignature
	CodeLoadFailed
	CodeEmitFailed
	CodeFinishFailed
)

var codeDescription = map[Code]string{
	UnknownCode:              "unknown error",
	CodeUnknownModule:        "unknown module",
	CodeCyclicDependency:     "cyclic dependency",
	CodeVersionMismatch:      "version mismatch",
	CodeUnknownType:          "unknown type",
	CodeUnknownSlot:          "unknown slot",
	CodeAmbiguousOverload:    "ambiguous overload",
	CodeNoMatchingOverload:   "no matching overload",
	CodeUnsupportedOperation: "unsupported operation",
	CodeInvalidSignature:     "invalid signature",
	CodeLoadFailed:           "load failed",
	CodeEmitFailed:           "emit failed",
	CodeFinishFailed:         "finish failed",
}

// ID returns the stable identifier of the code, e.g. "RT0004".
func (c Code) ID() string { return fmt.Sprintf("RT%04d", int(c)) }

// Title returns a short description of the code.
func (c Code) Title() string {
	if desc, ok := codeDescription[c]; ok {
		return desc
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string { return fmt.Sprintf("[%s]: %s", c.ID(), c.Title()) }

// Error is the error type returned by the registry and by types. Name is
// the module, type or slot the error is about.
type Error struct {
	Code Code
	Name string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code.Title()
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Name == "" && t.Msg == "" && t.Err == nil
}

var (
	ErrUnknownModule        = &Error{Code: CodeUnknownModule}
	ErrCyclicDependency     = &Error{Code: CodeCyclicDependency}
	ErrVersionMismatch      = &Error{Code: CodeVersionMismatch}
	ErrUnknownType          = &Error{Code: CodeUnknownType}
	ErrUnknownSlot          = &Error{Code: CodeUnknownSlot}
	ErrAmbiguousOverload    = &Error{Code: CodeAmbiguousOverload}
	ErrNoMatchingOverload   = &Error{Code: CodeNoMatchingOverload}
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation}
	ErrInvalidSignature     = &Error{Code: CodeInvalidSignature}
	ErrLoadFailed           = &Error{Code: CodeLoadFailed}
	ErrEmitFailed           = &Error{Code: CodeEmitFailed}
	ErrFinishFailed         = &Error{Code: CodeFinishFailed}
)

func errorf(code Code, name, format string, args ...any) *Error {
	return &Error{Code: code, Name: name, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(code Code, name string, err error) *Error {
	var re *Error
	if errors.As(err, &re) && re.Code == code && re.Name == name {
		return re
	}
	return &Error{Code: code, Name: name, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return UnknownCode
}
