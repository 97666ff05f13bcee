package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpNotIn
	OpLike
	OpIsNull
	OpIsNotNull
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpLike:
		return "LIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "UNKNOWN"
	}
}

// parseOperator maps a filter key such as "$gte" to an operator
func parseOperator(key string) (Operator, error) {
	switch key {
	case "$eq":
		return OpEqual, nil
	case "$ne":
		return OpNotEqual, nil
	case "$gt":
		return OpGreaterThan, nil
	case "$gte":
		return OpGreaterThanOrEqual, nil
	case "$lt":
		return OpLessThan, nil
	case "$lte":
		return OpLessThanOrEqual, nil
	case "$in":
		return OpIn, nil
	case "$nin":
		return OpNotIn, nil
	case "$like":
		return OpLike, nil
	case "$null":
		return OpIsNull, nil
	default:
		return OpEqual, fmt.Errorf("%w: %s", ErrUnknownOperator, key)
	}
}

// Filter is a WHERE mapping mirroring the relation structure, e.g.
//
//	Filter{"displayName": "Drill", "model": Filter{"manufacturer": Filter{"name": Filter{"$like": "A%"}}}}
type Filter map[string]interface{}

// Condition represents a single resolved comparison
type Condition struct {
	Path     AccessPath
	Column   string
	Operator Operator
	Value    interface{}
}

// PredicateGroup represents a group of conditions combined with AND/OR
type PredicateGroup struct {
	Conditions []*Condition
	Groups     []*PredicateGroup
	Or         bool // true for OR, false for AND
}

// NewPredicateGroup creates a new predicate group
func NewPredicateGroup(or bool) *PredicateGroup {
	return &PredicateGroup{
		Conditions: make([]*Condition, 0),
		Groups:     make([]*PredicateGroup, 0),
		Or:         or,
	}
}

// AddCondition adds a condition to the group
func (pg *PredicateGroup) AddCondition(cond *Condition) {
	pg.Conditions = append(pg.Conditions, cond)
}

// AddGroup adds a nested group
func (pg *PredicateGroup) AddGroup(group *PredicateGroup) {
	pg.Groups = append(pg.Groups, group)
}

// IsEmpty returns true if the group holds no conditions at any depth
func (pg *PredicateGroup) IsEmpty() bool {
	if pg == nil {
		return true
	}
	if len(pg.Conditions) > 0 {
		return false
	}
	for _, g := range pg.Groups {
		if !g.IsEmpty() {
			return false
		}
	}
	return true
}

// Paths returns the relation paths the group's conditions are evaluated on,
// in first-use order
func (pg *PredicateGroup) Paths() []AccessPath {
	var out []AccessPath
	seen := make(map[string]bool)
	var walk func(g *PredicateGroup)
	walk = func(g *PredicateGroup) {
		for _, c := range g.Conditions {
			if !c.Path.IsRoot() && !seen[c.Path.Key()] {
				seen[c.Path.Key()] = true
				out = append(out, c.Path)
			}
		}
		for _, sub := range g.Groups {
			walk(sub)
		}
	}
	if pg != nil {
		walk(pg)
	}
	return out
}

// ResolveFilter resolves a filter into a predicate tree rooted at an AND group
func (r *Resolver) ResolveFilter(root *schema.EntityMetadata, filter Filter) (*PredicateGroup, error) {
	group := NewPredicateGroup(false)
	if err := r.resolveFilterLevel(group, RootPath(root), map[string]interface{}(filter), nil); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *Resolver) resolveFilterLevel(group *PredicateGroup, path AccessPath, level map[string]interface{}, trail []string) error {
	entity := path.Target()

	for _, key := range sortedKeys(level) {
		value := level[key]
		keyTrail := append(append([]string{}, trail...), key)
		dotted := strings.Join(keyTrail, ".")

		if key == "$and" || key == "$or" {
			sub, err := r.resolveLogical(path, key == "$or", value, trail)
			if err != nil {
				return fmt.Errorf("%s: %w", dotted, err)
			}
			group.AddGroup(sub)
			continue
		}

		nested, isMap := asMap(value)

		if rel, ok := entity.Relation(key); ok {
			switch {
			case isMap && !isOperatorMap(nested):
				next, err := r.step(path, key, dotted)
				if err != nil {
					return err
				}
				if err := r.resolveFilterLevel(group, next, nested, keyTrail); err != nil {
					return err
				}
			case rel.IsCollection():
				return fmt.Errorf("%w: collection %s.%s needs a nested filter", ErrInvalidFilter, entity.Name, key)
			default:
				// A literal against a reference compares the owner's foreign key
				if err := addComparisons(group, path, rel.ForeignKey, value, nested, isMap); err != nil {
					return fmt.Errorf("%s: %w", dotted, err)
				}
			}
			continue
		}

		if field, ok := entity.Field(key); ok {
			if isMap && !isOperatorMap(nested) {
				return &NotARelationError{Entity: entity.Name, Path: dotted, Segment: key}
			}
			if err := addComparisons(group, path, field.Column, value, nested, isMap); err != nil {
				return fmt.Errorf("%s: %w", dotted, err)
			}
			continue
		}

		if isMap && !isOperatorMap(nested) {
			return &UnknownRelationError{Entity: entity.Name, Path: dotted, Segment: key}
		}
		return &UnknownFieldError{Entity: entity.Name, Path: dotted, Field: key}
	}

	return nil
}

func (r *Resolver) resolveLogical(path AccessPath, or bool, value interface{}, trail []string) (*PredicateGroup, error) {
	items, ok := toSlice(value)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of filters", ErrInvalidFilter)
	}
	group := NewPredicateGroup(or)
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: expected a filter, got %T", ErrInvalidFilter, item)
		}
		// Each list element is itself an AND of its keys
		sub := NewPredicateGroup(false)
		if err := r.resolveFilterLevel(sub, path, m, trail); err != nil {
			return nil, err
		}
		group.AddGroup(sub)
	}
	return group, nil
}

func addComparisons(group *PredicateGroup, path AccessPath, column string, value interface{}, ops map[string]interface{}, isMap bool) error {
	if !isMap {
		op := OpEqual
		if value == nil {
			op = OpIsNull
		}
		group.AddCondition(&Condition{Path: path, Column: column, Operator: op, Value: value})
		return nil
	}

	for _, key := range sortedKeys(ops) {
		op, err := parseOperator(key)
		if err != nil {
			return err
		}
		operand := ops[key]

		switch op {
		case OpIsNull:
			isNull, ok := operand.(bool)
			if !ok {
				return fmt.Errorf("%w: $null expects a boolean", ErrInvalidFilter)
			}
			if !isNull {
				op = OpIsNotNull
			}
			operand = nil
		case OpIn, OpNotIn:
			list, ok := toSlice(operand)
			if !ok {
				return fmt.Errorf("%w: %s expects a list", ErrInvalidFilter, key)
			}
			operand = list
		case OpEqual:
			if operand == nil {
				op = OpIsNull
			}
		case OpNotEqual:
			if operand == nil {
				op = OpIsNotNull
			}
		}

		group.AddCondition(&Condition{Path: path, Column: column, Operator: op, Value: operand})
	}
	return nil
}

func isOperatorMap(m map[string]interface{}) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") || k == "$and" || k == "$or" {
			return false
		}
	}
	return true
}

// toSlice converts any slice or array value into []interface{}
func toSlice(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]interface{}); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
