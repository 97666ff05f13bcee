package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// Direction is the sort direction of an orderBy leaf
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword for the direction
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection accepts a Direction, "asc"/"desc" in any case, or 1/-1
func ParseDirection(v interface{}) (Direction, error) {
	switch d := v.(type) {
	case Direction:
		if d == Asc || d == Desc {
			return d, nil
		}
	case string:
		switch strings.ToUpper(strings.TrimSpace(d)) {
		case "ASC":
			return Asc, nil
		case "DESC":
			return Desc, nil
		}
	case int:
		return numericDirection(float64(d), v)
	case int64:
		return numericDirection(float64(d), v)
	case float64:
		return numericDirection(d, v)
	}
	return Asc, fmt.Errorf("%w: %v", ErrInvalidDirection, v)
}

func numericDirection(n float64, raw interface{}) (Direction, error) {
	switch n {
	case 1:
		return Asc, nil
	case -1:
		return Desc, nil
	}
	return Asc, fmt.Errorf("%w: %v", ErrInvalidDirection, raw)
}

// OrderMap is one nested orderBy mapping, e.g.
//
//	OrderMap{"model": OrderMap{"manufacturer": OrderMap{"name": Asc}}}
//
// Keys within one level apply in sorted order. Use several maps in
// FindOptions.OrderBy to control precedence explicitly.
type OrderMap map[string]interface{}

// OrderTerm is a resolved orderBy leaf
type OrderTerm struct {
	Path      AccessPath
	Column    string
	Direction Direction
}

// String returns the dotted leaf with its direction
func (t OrderTerm) String() string {
	if t.Path.IsRoot() {
		return t.Column + " " + t.Direction.String()
	}
	return t.Path.String() + "." + t.Column + " " + t.Direction.String()
}

// ResolveOrderBy resolves orderBy mappings into terms in precedence order
func (r *Resolver) ResolveOrderBy(root *schema.EntityMetadata, maps []OrderMap) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, m := range maps {
		resolved, err := r.resolveOrderLevel(RootPath(root), map[string]interface{}(m), nil)
		if err != nil {
			return nil, err
		}
		terms = append(terms, resolved...)
	}
	return terms, nil
}

func (r *Resolver) resolveOrderLevel(path AccessPath, level map[string]interface{}, trail []string) ([]OrderTerm, error) {
	entity := path.Target()
	var terms []OrderTerm

	for _, key := range sortedKeys(level) {
		value := level[key]
		keyTrail := append(append([]string{}, trail...), key)
		dotted := strings.Join(keyTrail, ".")
		nested, isMap := asMap(value)

		if rel, ok := entity.Relation(key); ok {
			if !isMap {
				if rel.IsCollection() {
					return nil, fmt.Errorf("%w: collection %s.%s cannot be a sort key", ErrInvalidOrderBy, entity.Name, key)
				}
				// Ordering by a reference sorts on the owner's foreign key
				dir, err := ParseDirection(value)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", dotted, err)
				}
				terms = append(terms, OrderTerm{Path: path, Column: rel.ForeignKey, Direction: dir})
				continue
			}
			next, err := r.step(path, key, dotted)
			if err != nil {
				return nil, err
			}
			sub, err := r.resolveOrderLevel(next, nested, keyTrail)
			if err != nil {
				return nil, err
			}
			terms = append(terms, sub...)
			continue
		}

		if field, ok := entity.Field(key); ok {
			if isMap {
				return nil, &NotARelationError{Entity: entity.Name, Path: dotted, Segment: key}
			}
			dir, err := ParseDirection(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", dotted, err)
			}
			terms = append(terms, OrderTerm{Path: path, Column: field.Column, Direction: dir})
			continue
		}

		if isMap {
			return nil, &UnknownRelationError{Entity: entity.Name, Path: dotted, Segment: key}
		}
		return nil, &UnknownFieldError{Entity: entity.Name, Path: dotted, Field: key}
	}

	return terms, nil
}

// ParseOrderTerm converts "model.manufacturer.name:desc" into an OrderMap.
// The direction defaults to ascending.
func ParseOrderTerm(s string) (OrderMap, error) {
	dotted, dir := s, "asc"
	if i := strings.LastIndex(s, ":"); i >= 0 {
		dotted, dir = s[:i], s[i+1:]
	}
	direction, err := ParseDirection(dir)
	if err != nil {
		return nil, err
	}

	segments := strings.Split(dotted, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidOrderBy, s)
		}
	}

	leaf := OrderMap{segments[len(segments)-1]: direction}
	for i := len(segments) - 2; i >= 0; i-- {
		leaf = OrderMap{segments[i]: leaf}
	}
	return leaf, nil
}

// asMap unwraps the nested mapping types accepted in directives
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case OrderMap:
		return map[string]interface{}(m), true
	case Filter:
		return map[string]interface{}(m), true
	case map[string]interface{}:
		return m, true
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[string]Direction:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
