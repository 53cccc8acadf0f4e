// Package apierr maps failures to the `{"error": "..."}` responses
// returned by the api.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andrebq/todobox/internal/logutil"
)

type (
	Kind string

	Error struct {
		Kind    Kind
		Message string
		Cause   error
	}

	body struct {
		Error string `json:"error"`
	}
)

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"

	internalMessage = "Internal server error"
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%v] %v: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%v] %v", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the http status code used for e
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Unauthenticated(message string) *Error { return New(KindAuthentication, message) }
func Forbidden(message string) *Error { return New(KindAuthorization, message) }
func NotFound(message string) *Error { return New(KindNotFound, message) }
func Conflict(message string) *Error { return New(KindConflict, message) }

// Internal hides cause from the client, it only shows up in the logs
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: internalMessage, Cause: cause}
}

// Write sends err to the client. Errors that are not *Error are treated
// as internal ones.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}
	status := apiErr.Status()
	if status >= http.StatusInternalServerError {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(apiErr.Cause).Str("method", r.Method).Str("path", r.URL.Path).Msg("Unable to handle request")
	}
	WriteJSON(w, status, body{Error: apiErr.Message})
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, internalMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf)
}
