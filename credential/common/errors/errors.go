package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code identifies the failure class of a credential operation.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeMalformedInput   Code = "MALFORMED_INPUT"
	CodeMissingSchema    Code = "MISSING_SCHEMA"
	CodeUntrustedSchema  Code = "UNTRUSTED_SCHEMA"
	CodeSchemaValidation Code = "SCHEMA_VALIDATION"
	CodeUnsigned         Code = "UNSIGNED"
	CodeInvalidSignature Code = "INVALID_SIGNATURE"
	CodeKeyError         Code = "KEY_ERROR"
	CodeDecodeError      Code = "DECODE_ERROR"
)

var defaultMessages = map[Code]string{
	CodeUnknown:          "unknown error",
	CodeMalformedInput:   "malformed input",
	CodeMissingSchema:    "missing schema",
	CodeUntrustedSchema:  "failed to verify schema signature",
	CodeSchemaValidation: "schema validation failed",
	CodeUnsigned:         "document is unsigned",
	CodeInvalidSignature: "invalid signature",
	CodeKeyError:         "invalid key",
	CodeDecodeError:      "failed to decode document",
}

// Sentinels for errors.Is. Matching is by code, so any *Error carrying the
// same code matches regardless of message or cause.
var (
	ErrMalformedInput   = New(CodeMalformedInput, "")
	ErrMissingSchema    = New(CodeMissingSchema, "")
	ErrUntrustedSchema  = New(CodeUntrustedSchema, "")
	ErrSchemaValidation = New(CodeSchemaValidation, "")
	ErrUnsigned         = New(CodeUnsigned, "")
	ErrInvalidSignature = New(CodeInvalidSignature, "")
	ErrKeyError         = New(CodeKeyError, "")
	ErrDecodeError      = New(CodeDecodeError, "")
)

// Error is the error type returned by the public credential operations.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates an error with the given code. An empty message falls back to
// the code's default message.
func New(code Code, message string) *Error {
	if message == "" {
		message = defaultMessages[code]
		if message == "" {
			message = defaultMessages[CodeUnknown]
		}
	}
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to an existing error.
func Wrap(code Code, cause error, message string) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message returns the message without the cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// From extracts the outermost *Error from err's chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// Ensure returns err unchanged when it already carries a code, otherwise it
// wraps it with the given code and message.
func Ensure(code Code, err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := From(err); ok {
		return err
	}
	return Wrap(code, err, message)
}
