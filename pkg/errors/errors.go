package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// maxUpstreamExcerpt bounds how much of an upstream body is carried in errors.
const maxUpstreamExcerpt = 200

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUpstream   = New("UPSTREAM_ERROR", http.StatusInternalServerError, "change log report request failed")
)

// UpstreamError reports a failed call to the change log report API. Status is zero
// when the request never produced a response.
type UpstreamError struct {
	Status int
	Body   string
	Page   int
	Err    error
}

// NewUpstreamStatusError builds an UpstreamError for a non-success response, keeping
// only a short excerpt of the body.
func NewUpstreamStatusError(page, status int, body []byte) *UpstreamError {
	return &UpstreamError{Status: status, Body: Truncate(string(body), maxUpstreamExcerpt), Page: page}
}

// NewUpstreamTransportError builds an UpstreamError for a request that failed before
// a response was read.
func NewUpstreamTransportError(page int, err error) *UpstreamError {
	return &UpstreamError{Page: page, Err: err}
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status == 0 {
		return fmt.Sprintf("upstream page %d: %v", e.Page, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream page %d returned %d %s", e.Page, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("upstream page %d returned %d %s - %s", e.Page, e.Status, http.StatusText(e.Status), e.Body)
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatus mirrors the upstream status when it is an error status, otherwise 500.
func (e *UpstreamError) HTTPStatus() int {
	if e == nil || e.Status < http.StatusBadRequest || e.Status > 599 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return Wrap(err, ErrUpstream.Code, up.HTTPStatus(), up.Error())
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
