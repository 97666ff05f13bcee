package orm

import "errors"

var (
	// ErrInvalidConfig is returned by Init when a required dependency is missing
	ErrInvalidConfig = errors.New("invalid orm config")

	// ErrNotFound is returned by FindOne when no row matches
	ErrNotFound = errors.New("entity not found")

	// ErrCollectionValue is returned by Create when a value targets a one-to-many relation
	ErrCollectionValue = errors.New("collections cannot be assigned on create")

	// ErrUnsavedReference is returned by Flush when an entity references an
	// owner that has no id and is not pending in the session
	ErrUnsavedReference = errors.New("reference to an unsaved entity")
)
