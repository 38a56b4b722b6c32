package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/entities/project"
	"github.com/arborhq/arbor/modules/notes/infrastructure/persistence"
)

// ServiceError carries an HTTP-ready status so controllers can distinguish
// structural violations (409/422) from stale client state (404) and
// transient storage trouble (503, safe to retry).
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// asServiceError maps domain and storage errors onto the service error
// vocabulary. Unknown errors become opaque 500s.
func asServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	switch {
	case errors.Is(err, note.ErrNoteNotFound):
		return newServiceError(http.StatusNotFound, "NOTE_NOT_FOUND", "note not found", err)
	case errors.Is(err, project.ErrProjectNotFound):
		return newServiceError(http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found", err)
	case errors.Is(err, note.ErrCycle):
		return newServiceError(http.StatusConflict, "NOTE_CYCLE", "reparent would create a cycle", err)
	case errors.Is(err, note.ErrInvalidParent):
		return newServiceError(http.StatusUnprocessableEntity, "NOTE_INVALID_PARENT", "parent missing or in another project", err)
	case persistence.IsTransient(err):
		return newServiceError(http.StatusServiceUnavailable, "STORE_TRANSIENT", "transient storage failure, retry", err)
	default:
		return newServiceError(http.StatusInternalServerError, "INTERNAL", "internal error", err)
	}
}
