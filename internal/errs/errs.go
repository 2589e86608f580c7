// Package errs provides a coded error type that the entry point maps to HTTP statuses.
package errs

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

type Code uint8

const (
	// Unknown is for unclassified errors
	Unknown Code = iota
	// Config is for missing or invalid service configuration
	Config
	// Validation is for bad request input
	Validation
	// JSON is for undecodable request bodies
	JSON
	// NotFound is for missing resources
	NotFound
	// Upstream is for failures of an external collaborator
	Upstream
)

func (c Code) String() string {
	switch c {
	case Config:
		return "config"
	case Validation:
		return "validation"
	case JSON:
		return "json"
	case NotFound:
		return "not_found"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// HTTPStatus turns a Code into an http status code
func HTTPStatus(c Code) int {
	switch c {
	case Validation, JSON:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	code Code
	msg  string
	orig error
}

func (e *Error) Error() string {
	if e.orig != nil {
		if e.msg == "" {
			return e.orig.Error()
		}
		return e.msg + ": " + e.orig.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.orig }

func (e *Error) Code() Code { return e.code }

// Message returns the message without the wrapped cause.
func (e *Error) Message() string {
	if e.msg == "" && e.orig != nil {
		return e.orig.Error()
	}
	return e.msg
}

func New(code Code, msg string) error { return &Error{code: code, msg: msg} }

func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err stays nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, orig: err}
}

// CodeOf returns the code of the outermost coded error in the chain, Unknown otherwise.
func CodeOf(err error) Code {
	var e *Error
	if stderrs.As(err, &e) {
		return e.code
	}
	return Unknown
}

// StatusOf is HTTPStatus(CodeOf(err)).
func StatusOf(err error) int { return HTTPStatus(CodeOf(err)) }
