// Package apperror defines the error taxonomy shared by the services and the
// HTTP edge.  Every error carries a Kind and the HTTP status it maps to, so
// the edge never guesses a status from a message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindUpload     Kind = "upload"
	KindMail       Kind = "mail"
	KindInternal   Kind = "internal"
)

// Error is the concrete error returned by the service layer.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Errors  []string // per-field details, may be empty
	Err     error    // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err,
// &Error{Kind: KindNotFound}) works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Status == 0 || t.Status == e.Status)
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg, Errors: details}
}

// Auth is a 401 authentication failure.
func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: msg}
}

// BadCredentials is an authentication failure answered with 400, used where
// the caller is already identified (wrong password, bad reset token).
func BadCredentials(msg string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusBadRequest, Message: msg}
}

// Upload reports a Media Host failure.  Registration answers 501, avatar
// replacement 500.
func Upload(status int, msg string, cause error) *Error {
	return &Error{Kind: KindUpload, Status: status, Message: msg, Err: cause}
}

func Mail(msg string, cause error) *Error {
	return &Error{Kind: KindMail, Status: http.StatusInternalServerError, Message: msg, Err: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Something went wrong", Err: cause}
}

// From returns err as *Error, wrapping unknown errors as Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
