package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error independently of its message.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindSignature    Kind = "signature"
	KindProvider     Kind = "provider"
	KindNotification Kind = "notification"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrValidation) matches any validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != "" && t.Kind == e.Kind
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Kind:    kind,
		Err:     err,
	}
}

// Sentinels for errors.Is comparisons. Never mutate them; use the constructors.
var (
	ErrValidation   = New(http.StatusBadRequest, KindValidation, "Validation error", nil)
	ErrSignature    = New(http.StatusBadRequest, KindSignature, "Invalid webhook signature", nil)
	ErrProvider     = New(http.StatusInternalServerError, KindProvider, "Payment provider error", nil)
	ErrNotification = New(http.StatusInternalServerError, KindNotification, "Notification failed", nil)
	ErrNotFound     = New(http.StatusNotFound, KindNotFound, "Not found", nil)
	ErrInternal     = New(http.StatusInternalServerError, KindInternal, "Internal server error", nil)
)

// Validation reports bad client input. No external call has been made.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

// Signature reports a webhook that failed authentication.
func Signature(err error) *Error {
	return New(http.StatusBadRequest, KindSignature, "Invalid webhook signature", err)
}

// Provider wraps a payment provider failure. message is safe to show to clients.
func Provider(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindProvider, message, err)
}

// Notification wraps a failed email send.
func Notification(recipient string, err error) *Error {
	return New(http.StatusInternalServerError, KindNotification, "Failed to notify "+recipient, err)
}

func NotFound(message string, err error) *Error {
	return New(http.StatusNotFound, KindNotFound, message, err)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, message, err)
}

// StatusCode maps any error to the HTTP status it should produce.
func StatusCode(err error) int {
	var appErr *Error
	if stderrors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-safe message of err. Wrapped causes are
// never included.
func PublicMessage(err error) string {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}

// Cause returns the innermost error wrapped by an *Error, or err itself.
func Cause(err error) error {
	var appErr *Error
	if stderrors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err
	}
	return err
}
