// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"sync"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
)

type mapping struct {
	target error
	status int
	title  string
}

var (
	mu       sync.RWMutex
	mappings = []mapping{
		{ErrNotFound, http.StatusNotFound, "Not Found"},
		{ErrConflict, http.StatusConflict, "Conflict"},
		{ErrValidation, http.StatusBadRequest, "Validation Failed"},
		{ErrForbidden, http.StatusForbidden, "Forbidden"},
		{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{ErrUnavailable, http.StatusServiceUnavailable, "Service Unavailable"},
	}
)

// Register maps a domain error onto an HTTP status. Later registrations win.
func Register(target error, status int, title string) {
	mu.Lock()
	defer mu.Unlock()
	mappings = append([]mapping{{target, status, title}}, mappings...)
}

// Status returns the HTTP status and title for err.
func Status(err error) (int, string) {
	mu.RLock()
	defer mu.RUnlock()
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.status, m.title
		}
	}
	return http.StatusInternalServerError, "Internal Error"
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	RespondProblem(w, err, nil)
}

// RespondProblem is RespondError with extension members attached.
func RespondProblem(w http.ResponseWriter, err error, ext map[string]any) {
	status, title := Status(err)
	detail := ""
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	JSON(w, status, ProblemDetail{
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: ext,
	})
}
