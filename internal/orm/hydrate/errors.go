package hydrate

import "fmt"

// IncompleteRowError is returned when a result row lacks the primary key
// column of an entity the plan selected
type IncompleteRowError struct {
	Entity string
	Alias  string
	Column string
}

// Error implements the error interface
func (e *IncompleteRowError) Error() string {
	return fmt.Sprintf("result row has no primary key %q for %s (alias %s)", e.Column, e.Entity, e.Alias)
}
