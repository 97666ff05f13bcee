// Package entity holds hydrated and pending entity instances.
package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

var (
	// ErrUnknownField is returned when a value is set on an undeclared field
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownRelation is returned when a relation is set that is not declared
	ErrUnknownRelation = errors.New("unknown relation")
)

// Entity is one instance of an entity type. Scalar values are keyed by field
// name. A many-to-one relation is either populated (Related) or only known by
// its foreign key value (Reference).
type Entity struct {
	meta   *schema.EntityMetadata
	id     interface{}
	values map[string]interface{}
	refs   map[string]interface{}
	one    map[string]*Entity
	many   map[string][]*Entity
}

// New creates an empty instance of an entity type
func New(meta *schema.EntityMetadata) *Entity {
	return &Entity{
		meta:   meta,
		values: make(map[string]interface{}),
		refs:   make(map[string]interface{}),
		one:    make(map[string]*Entity),
		many:   make(map[string][]*Entity),
	}
}

// Meta returns the entity type
func (e *Entity) Meta() *schema.EntityMetadata {
	return e.meta
}

// ID returns the primary key, nil until the entity is persisted
func (e *Entity) ID() interface{} {
	return e.id
}

// SetID assigns the primary key
func (e *Entity) SetID(id interface{}) {
	e.id = id
	e.values[e.meta.PrimaryKey] = id
}

// Get returns a scalar field value
func (e *Entity) Get(field string) (interface{}, bool) {
	v, ok := e.values[field]
	return v, ok
}

// Set assigns a scalar field value
func (e *Entity) Set(field string, value interface{}) error {
	if !e.meta.HasField(field) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.meta.Name, field)
	}
	if field == e.meta.PrimaryKey {
		e.SetID(value)
		return nil
	}
	e.values[field] = value
	return nil
}

// Values returns a copy of the scalar values
func (e *Entity) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Reference returns the foreign key value of a many-to-one relation. For a
// populated relation it is the related entity's id.
func (e *Entity) Reference(relation string) (interface{}, bool) {
	if target, ok := e.one[relation]; ok && target != nil && target.id != nil {
		return target.id, true
	}
	v, ok := e.refs[relation]
	return v, ok
}

// SetReference records the foreign key value of a many-to-one relation
func (e *Entity) SetReference(relation string, value interface{}) error {
	if err := e.checkRelation(relation, schema.CardinalityOne); err != nil {
		return err
	}
	e.refs[relation] = value
	return nil
}

// Related returns the populated target of a many-to-one relation. The second
// result is false when the relation was not populated.
func (e *Entity) Related(relation string) (*Entity, bool) {
	target, ok := e.one[relation]
	return target, ok
}

// SetRelated populates a many-to-one relation; target may be nil
func (e *Entity) SetRelated(relation string, target *Entity) error {
	if err := e.checkRelation(relation, schema.CardinalityOne); err != nil {
		return err
	}
	e.one[relation] = target
	if target == nil {
		e.refs[relation] = nil
	} else if target.id != nil {
		e.refs[relation] = target.id
	}
	return nil
}

// Collection returns the populated members of a one-to-many relation
func (e *Entity) Collection(relation string) ([]*Entity, bool) {
	items, ok := e.many[relation]
	if !ok {
		return nil, false
	}
	out := make([]*Entity, len(items))
	copy(out, items)
	return out, true
}

// InitCollection marks a one-to-many relation populated, with no members yet
func (e *Entity) InitCollection(relation string) error {
	if err := e.checkRelation(relation, schema.CardinalityMany); err != nil {
		return err
	}
	if _, ok := e.many[relation]; !ok {
		e.many[relation] = []*Entity{}
	}
	return nil
}

// AddToCollection appends a member unless the same instance is already present
func (e *Entity) AddToCollection(relation string, member *Entity) error {
	if err := e.InitCollection(relation); err != nil {
		return err
	}
	for _, existing := range e.many[relation] {
		if existing == member {
			return nil
		}
	}
	e.many[relation] = append(e.many[relation], member)
	return nil
}

// IsPopulated reports whether a relation was loaded
func (e *Entity) IsPopulated(relation string) bool {
	if _, ok := e.one[relation]; ok {
		return true
	}
	_, ok := e.many[relation]
	return ok
}

func (e *Entity) checkRelation(relation string, card schema.Cardinality) error {
	rel, ok := e.meta.Relation(relation)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownRelation, e.meta.Name, relation)
	}
	if rel.Cardinality != card {
		return fmt.Errorf("%w: %s.%s is %s, not %s", ErrUnknownRelation, e.meta.Name, relation, rel.Cardinality, card)
	}
	return nil
}

// String renders the entity as Name{id=1 field=value ...}
func (e *Entity) String() string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		if k != e.meta.PrimaryKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := []string{fmt.Sprintf("%s=%v", e.meta.PrimaryKey, e.id)}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.values[k]))
	}
	return e.meta.Name + "{" + strings.Join(parts, " ") + "}"
}
