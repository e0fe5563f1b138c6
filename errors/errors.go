package errors

import (
	"net/http"
	"strings"
)

// Error is the error type returned across service boundaries. It carries the
// HTTP status that should be used when the error reaches a handler.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

var (
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrUsernameTaken       = New("username is already taken", http.StatusBadRequest)
)

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// IsUniqueConstraintError reports whether err is a duplicate-key violation on
// the named column, as surfaced by the postgres driver through gorm.
func IsUniqueConstraintError(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") && strings.Contains(msg, column)
}

// GetUniqueConstraintError maps duplicate-key violations to field-specific
// validation errors, falling back to an opaque 500.
func GetUniqueConstraintError(err error) *Error {
	switch {
	case IsUniqueConstraintError(err, "username"):
		return ErrUsernameTaken
	case IsUniqueConstraintError(err, "email"):
		return New("email is already registered", http.StatusBadRequest)
	default:
		return ErrInternalServerError
	}
}
