package apierr

import (
	"fmt"
	"net/http"
)

// Error carries the HTTP status and stable machine code a handler writes
// for a failed request.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a client may repeat the request unchanged.
func (e *Error) Retryable() bool {
	return e != nil && (e.Status == http.StatusServiceUnavailable || e.Status == http.StatusTooManyRequests)
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(err error) *Error    { return New(http.StatusBadRequest, "invalid_argument", err) }
func Unauthorized(err error) *Error  { return New(http.StatusUnauthorized, "unauthorized", err) }
func Forbidden(err error) *Error     { return New(http.StatusForbidden, "forbidden", err) }
func NotFound(err error) *Error      { return New(http.StatusNotFound, "not_found", err) }
func Conflict(err error) *Error      { return New(http.StatusConflict, "precondition_failed", err) }
func InvalidTarget(err error) *Error { return New(http.StatusUnprocessableEntity, "invalid_target", err) }
func Unavailable(err error) *Error   { return New(http.StatusServiceUnavailable, "store_unavailable", err) }
