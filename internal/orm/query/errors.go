package query

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDirection is returned when an orderBy leaf is not a direction
	ErrInvalidDirection = errors.New("invalid order direction")

	// ErrInvalidOrderBy is returned when an orderBy mapping has the wrong shape
	ErrInvalidOrderBy = errors.New("invalid orderBy")

	// ErrInvalidFilter is returned when a filter mapping has the wrong shape
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrUnknownOperator is returned for an unsupported filter operator
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrInvalidPagination is returned for a negative limit or offset
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrPaginatedCollection is returned when limit or offset is combined with a to-many join
	ErrPaginatedCollection = errors.New("limit and offset cannot be combined with a joined collection")

	// ErrDanglingAlias is returned when a statement would reference a join that is not planned
	ErrDanglingAlias = errors.New("column references an unplanned join")

	// ErrForeignRoot is returned when a path does not start at the query's root entity
	ErrForeignRoot = errors.New("path is rooted at a different entity")
)

// UnknownRelationError is returned when a path segment is not declared on
// the entity reached so far
type UnknownRelationError struct {
	Entity  string
	Path    string
	Segment string
}

// Error implements the error interface
func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("entity %s has no relation %q (path %q)", e.Entity, e.Segment, e.Path)
}

// NotARelationError is returned when a path segment names a scalar field
type NotARelationError struct {
	Entity  string
	Path    string
	Segment string
}

// Error implements the error interface
func (e *NotARelationError) Error() string {
	return fmt.Sprintf("%s.%s is a scalar field, not a relation (path %q)", e.Entity, e.Segment, e.Path)
}

// UnknownFieldError is returned when a terminal field is not declared on the
// entity a path leads to
type UnknownFieldError struct {
	Entity string
	Path   string
	Field  string
}

// Error implements the error interface
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("entity %s has no field %q (path %q)", e.Entity, e.Field, e.Path)
}
