// Package goerror carries the error taxonomy shared by usecases and transports.
// An *Error pairs a client-safe message with an internal cause and an optional
// reason tag that handlers and metrics key on.
package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict")
)

// Type is the coarse bucket of an error.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

var typeNames = map[Type]string{
	TypeServer:     "server",
	TypeBusiness:   "business",
	TypeValidation: "validation",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Code selects the HTTP status an error is rendered with.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
)

var codeStatus = map[Code]int{
	CodeInternal:      http.StatusInternalServerError,
	CodeInvalidFormat: http.StatusBadRequest,
	CodeInvalidInput:  http.StatusBadRequest,
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
}

const (
	msgServer        = "Internal server error"
	msgValidation    = "Validation error"
	msgInvalidFormat = "Invalid request body"
)

// Error is the structured error returned by usecases.
type Error struct {
	cause   error
	msg     string
	reason  string
	errType Type
	code    Code
	fields  map[string]string
}

func build(cause error, msg string, t Type, c Code) *Error {
	return &Error{cause: cause, msg: msg, errType: t, code: c}
}

// Error prefers the internal cause so logs show what actually failed.
func (e *Error) Error() string {
	switch {
	case e.cause != nil:
		return e.cause.Error()
	case e.msg != "":
		return e.msg
	default:
		return e.errType.String() + " error"
	}
}

// String is the verbose form used in debug logs.
func (e *Error) String() string {
	return fmt.Sprintf("type=%s code=%d reason=%q msg=%q cause=%v", e.errType, e.code, e.reason, e.msg, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Msg is safe to show to clients.
func (e *Error) Msg() string { return e.msg }

func (e *Error) Reason() string { return e.reason }

func (e *Error) Type() Type { return e.errType }

func (e *Error) Code() Code { return e.code }

// Fields holds per-field validation messages, when any.
func (e *Error) Fields() map[string]string { return e.fields }

func (e *Error) StatusCode() int {
	if s, ok := codeStatus[e.code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func NewServer(err error) error {
	return build(err, msgServer, TypeServer, CodeInternal)
}

// NewServerMsg is NewServer with a specific client message. err is never rendered.
func NewServerMsg(err error, msg string) error {
	return build(err, msg, TypeServer, CodeInternal)
}

func NewBusiness(msg string, code Code) error {
	return build(nil, msg, TypeBusiness, code)
}

// NewInvalidInput wraps a validator error, or, when err is nil, builds a
// validation error from field/message pairs. An odd pair count is treated as
// a malformed body.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return build(err, msgValidation, TypeValidation, CodeInvalidInput)
	}
	if len(kv)%2 == 1 {
		return build(nil, msgInvalidFormat, TypeValidation, CodeInvalidFormat)
	}

	e := build(nil, msgValidation, TypeValidation, CodeInvalidInput)
	e.fields = make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}
	return e
}

// NewInvalidFormat reports an undecodable request. The first msg, if any,
// replaces the default client message.
func NewInvalidFormat(msg ...string) error {
	m := msgInvalidFormat
	if len(msg) > 0 {
		m = msg[0]
	}
	return build(nil, m, TypeValidation, CodeInvalidFormat)
}

// WithReason tags a copy of err with reason. A plain error becomes a server
// error first, so its text never reaches the client.
func WithReason(err error, reason string) error {
	if err == nil {
		return nil
	}

	var src *Error
	if !errors.As(err, &src) {
		src = build(err, msgServer, TypeServer, CodeInternal)
	}

	tagged := *src
	tagged.reason = reason
	return &tagged
}

// ReasonOf returns the reason of the first *Error in the chain.
func ReasonOf(err error) string {
	if e := (*Error)(nil); errors.As(err, &e) {
		return e.reason
	}
	return ""
}
