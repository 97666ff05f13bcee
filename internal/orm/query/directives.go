package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// FindOptions are the caller-facing directives of a find
type FindOptions struct {
	// Populate lists dotted relation paths to eager load, e.g. "model.manufacturer"
	Populate []string
	// OrderBy lists nested order mappings in precedence order
	OrderBy []OrderMap
	Limit   *int
	Offset  *int
}

// QuerySpec is a fully resolved query request. It is built once per
// execution and never mutated afterwards.
type QuerySpec struct {
	Root     *schema.EntityMetadata
	Populate []AccessPath
	OrderBy  []OrderTerm
	Where    *PredicateGroup
	Limit    *int
	Offset   *int
}

// Spec resolves every directive of a find. All path errors surface here,
// before anything is sent to storage.
func (r *Resolver) Spec(root *schema.EntityMetadata, filter Filter, opts FindOptions) (QuerySpec, error) {
	spec := QuerySpec{Root: root, Limit: opts.Limit, Offset: opts.Offset}

	for _, p := range opts.Populate {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		path, err := r.Resolve(root, p)
		if err != nil {
			return QuerySpec{}, fmt.Errorf("populate: %w", err)
		}
		spec.Populate = append(spec.Populate, path)
	}

	terms, err := r.ResolveOrderBy(root, opts.OrderBy)
	if err != nil {
		return QuerySpec{}, fmt.Errorf("orderBy: %w", err)
	}
	spec.OrderBy = terms

	where, err := r.ResolveFilter(root, filter)
	if err != nil {
		return QuerySpec{}, fmt.Errorf("filter: %w", err)
	}
	spec.Where = where

	if opts.Limit != nil && *opts.Limit < 0 {
		return QuerySpec{}, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidPagination, *opts.Limit)
	}
	if opts.Offset != nil && *opts.Offset < 0 {
		return QuerySpec{}, fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidPagination, *opts.Offset)
	}

	return spec, nil
}

// ParseFilterTerms turns "model.manufacturer.name=ACME" terms into a nested
// Filter of equality conditions. Integers compare as numbers and "null"
// matches NULL. A path given twice, or given both as a value and as the
// prefix of another term, is rejected.
func ParseFilterTerms(terms []string) (Filter, error) {
	filter := Filter{}
	for _, term := range terms {
		key, raw, ok := strings.Cut(term, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q, expected path=value", ErrInvalidFilter, term)
		}

		segments := strings.Split(key, ".")
		for _, seg := range segments {
			if seg == "" {
				return nil, fmt.Errorf("%w: %q has an empty path segment", ErrInvalidFilter, term)
			}
		}

		level := filter
		for i, seg := range segments[:len(segments)-1] {
			existing, present := level[seg]
			next, ok := existing.(Filter)
			if present && !ok {
				return nil, conflictingTerm(term, segments[:i+1])
			}
			if !ok {
				next = Filter{}
				level[seg] = next
			}
			level = next
		}

		last := segments[len(segments)-1]
		if _, present := level[last]; present {
			return nil, conflictingTerm(term, segments)
		}
		level[last] = parseFilterValue(raw)
	}
	return filter, nil
}

func conflictingTerm(term string, path []string) error {
	return fmt.Errorf("%w: %q conflicts with an earlier term on %s", ErrInvalidFilter, term, strings.Join(path, "."))
}

func parseFilterValue(raw string) interface{} {
	if raw == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
