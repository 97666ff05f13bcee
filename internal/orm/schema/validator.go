package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEntity is returned when an entity name is not registered
var ErrUnknownEntity = errors.New("unknown entity")

// ValidationError represents a metadata declaration error with context
type ValidationError struct {
	Entity  string
	Member  string
	Message string
}

func newValidationError(entity, member, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Entity:  entity,
		Member:  member,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		b.WriteString(e.Entity)
		if e.Member != "" {
			b.WriteString(".")
			b.WriteString(e.Member)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// BuildError collects every validation error found while building a Registry
type BuildError struct {
	Errors []*ValidationError
}

// Error implements the error interface
func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("schema building failed with %d errors:\n%s", len(e.Errors), strings.Join(msgs, "\n"))
}

// validator checks cross-entity consistency of a registry under construction
type validator struct {
	reg *Registry
}

func newValidator(reg *Registry) *validator {
	return &validator{reg: reg}
}

func (v *validator) validate() []*ValidationError {
	var errs []*ValidationError
	for _, name := range v.reg.order {
		meta := v.reg.entities[name]
		errs = append(errs, v.validatePrimaryKey(meta)...)
		errs = append(errs, v.validateColumns(meta)...)
		errs = append(errs, v.validateRelations(meta)...)
	}
	return errs
}

func (v *validator) validatePrimaryKey(meta *EntityMetadata) []*ValidationError {
	if meta.PrimaryKey == "" {
		return []*ValidationError{newValidationError(meta.Name, "", "no primary key declared")}
	}
	if pk := meta.PrimaryKeyField(); pk != nil && pk.Nullable {
		return []*ValidationError{newValidationError(meta.Name, pk.Name, "primary key cannot be nullable")}
	}
	return nil
}

func (v *validator) validateColumns(meta *EntityMetadata) []*ValidationError {
	var errs []*ValidationError
	seen := make(map[string]string)
	for _, col := range meta.Columns() {
		member := ""
		if col.Field != nil {
			member = col.Field.Name
		} else {
			member = col.Relation.Name
		}
		if prev, dup := seen[col.Name]; dup {
			errs = append(errs, newValidationError(meta.Name, member, "column %s already used by %s", col.Name, prev))
			continue
		}
		seen[col.Name] = member
	}
	return errs
}

func (v *validator) validateRelations(meta *EntityMetadata) []*ValidationError {
	var errs []*ValidationError
	for _, rel := range meta.relations {
		target, ok := v.reg.entities[rel.Target]
		if !ok {
			errs = append(errs, newValidationError(meta.Name, rel.Name, "references unknown entity %s", rel.Target))
			continue
		}
		if rel.Cardinality == CardinalityMany {
			if !target.HasColumn(rel.ForeignKey) {
				errs = append(errs, newValidationError(meta.Name, rel.Name,
					"target %s has no column %s to join on", target.Name, rel.ForeignKey))
			}
			if rel.Nullable {
				errs = append(errs, newValidationError(meta.Name, rel.Name, "collections cannot be optional"))
			}
		}
	}
	return errs
}
