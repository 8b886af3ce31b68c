package flux

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Error represents an HTTP error that occurred while handling a request.
type Error struct {
	Code     string
	Status   int
	Message  string
	Errors   any
	Internal error
}

// Errors
var (
	InternalError     = NewError("internal", http.StatusInternalServerError, "Something went wrong.")
	UnauthorizedError = NewError("unauthorized", http.StatusUnauthorized, "Unauthorized.")
	TimeoutError      = NewError("timeout", http.StatusServiceUnavailable, "Request timed out.")
	NotFoundError     = func(message string) *Error {
		return NewError("not_found", http.StatusNotFound, message)
	}
	InvalidError = func(format string, args ...any) *Error {
		return &Error{
			Code:    "invalid",
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf(format, args...),
		}
	}
	ValidationError = func(errs any) *Error {
		return &Error{
			Code:    "validation",
			Status:  http.StatusBadRequest,
			Message: "A validation error occurred.",
			Errors:  errs,
		}
	}
)

// NewError constructs a new Error with the given code, status, and message.
func NewError(code string, status int, message string) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
	}
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	if e.Internal == nil {
		return fmt.Sprintf("code=%s, status=%d, message=%s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("code=%s, status=%d, message=%s, internal=%v", e.Code, e.Status, e.Message, e.Internal)
}

// Unwrap returns the internal error.
func (e *Error) Unwrap() error {
	return e.Internal
}

// SetInternal returns a copy of e with the internal error set.
// The package level errors are shared, so they are never modified in place.
func (e *Error) SetInternal(err error) *Error {
	dup := *e
	dup.Internal = err
	return &dup
}

// handleError handles errors that occur during an HTTP request.
func (s *Server) handleError(f *Flow, err error) {
	var e *Error
	ok := errors.As(err, &e)
	if !ok {
		e = InternalError
		f.logger.Error("An unexpected error occurred.", slog.String("error", err.Error()))
	} else if e.Status >= http.StatusInternalServerError && e.Internal != nil {
		f.logger.Error("Request failed.", slog.String("code", e.Code), slog.String("error", e.Internal.Error()))
	}

	res := map[string]any{
		"code":    e.Code,
		"status":  e.Status,
		"message": e.Message,
	}
	if e.Errors != nil {
		res["errors"] = e.Errors
	}

	// Authentication failures never expose their cause.
	if s.debug && e.Status != http.StatusUnauthorized {
		if e.Internal != nil {
			res["internal"] = e.Internal.Error()
		} else if !ok {
			res["internal"] = err.Error()
		}
	}
	if err := f.Respond(e.Status, res); err != nil {
		f.logger.Error("Error writing response.", slog.String("error", err.Error()))
	}
}
