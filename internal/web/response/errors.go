// Package response renders JSON bodies and maps query errors to HTTP status
// codes.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conduit-lang/relquery/internal/orm"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// RenderJSON writes v with the given status code
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// RenderError renders a standard error response
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	resp := &ErrorResponse{
		Error:   errorCodeFromStatus(statusCode),
		Message: err.Error(),
	}

	var se *storage.StorageError
	if errors.As(err, &se) {
		resp.Code = se.Code()
	}

	RenderJSON(w, statusCode, resp)
}

// Render picks the status code for err and renders it
func Render(w http.ResponseWriter, err error) {
	RenderError(w, StatusFor(err), err)
}

// StatusFor maps an ORM error to an HTTP status. Caller mistakes in paths,
// filters and directives are 400; storage failures are 502 unless they are
// constraint violations.
func StatusFor(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	switch {
	case errors.Is(err, orm.ErrNotFound), errors.Is(err, schema.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUniqueViolation), errors.Is(err, storage.ErrForeignKeyViolation):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotNullViolation), errors.Is(err, storage.ErrCheckViolation):
		return http.StatusUnprocessableEntity
	case storage.IsStorageError(err):
		return http.StatusBadGateway
	case isQueryError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isQueryError(err error) bool {
	var unknownRel *query.UnknownRelationError
	var notRel *query.NotARelationError
	var unknownField *query.UnknownFieldError
	return errors.As(err, &unknownRel) ||
		errors.As(err, &notRel) ||
		errors.As(err, &unknownField) ||
		errors.Is(err, query.ErrInvalidDirection) ||
		errors.Is(err, query.ErrInvalidOrderBy) ||
		errors.Is(err, query.ErrInvalidFilter) ||
		errors.Is(err, query.ErrUnknownOperator) ||
		errors.Is(err, query.ErrInvalidPagination) ||
		errors.Is(err, query.ErrPaginatedCollection)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message}
}
