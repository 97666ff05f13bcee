package query

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// Kind records the purposes a join serves
type Kind uint8

const (
	KindEagerLoad Kind = 1 << iota
	KindOrderBy
	KindFilter
)

// Has reports whether every bit of other is set
func (k Kind) Has(other Kind) bool {
	return k&other == other
}

// String returns the kinds joined with "|", e.g. "eager-load|order-by"
func (k Kind) String() string {
	var parts []string
	if k.Has(KindEagerLoad) {
		parts = append(parts, "eager-load")
	}
	if k.Has(KindOrderBy) {
		parts = append(parts, "order-by")
	}
	if k.Has(KindFilter) {
		parts = append(parts, "filter")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// JoinType represents the type of SQL join
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// String returns the string representation of the join type
func (j JoinType) String() string {
	switch j {
	case LeftJoin:
		return "LEFT"
	default:
		return "INNER"
	}
}

// JoinPlanEntry is one planned join, or the FROM entry for the root
type JoinPlanEntry struct {
	Path     AccessPath
	Alias    string
	Kind     Kind
	Parent   *JoinPlanEntry
	JoinType JoinType
}

// IsRoot returns true for the FROM entry
func (e *JoinPlanEntry) IsRoot() bool {
	return e.Parent == nil
}

// Relation returns the relation joined by this entry, nil for the root
func (e *JoinPlanEntry) Relation() *schema.Relation {
	if last, ok := e.Path.Last(); ok {
		return last.Relation
	}
	return nil
}

// Target returns the entity whose table this entry joins
func (e *JoinPlanEntry) Target() *schema.EntityMetadata {
	return e.Path.Target()
}

// JoinPlan maps every distinct access prefix of a query to one join
type JoinPlan struct {
	root    *JoinPlanEntry
	entries []*JoinPlanEntry
	byKey   map[string]*JoinPlanEntry
}

func newJoinPlan(root *schema.EntityMetadata) *JoinPlan {
	entry := &JoinPlanEntry{Path: RootPath(root), Alias: aliasFor(0)}
	return &JoinPlan{
		root:    entry,
		entries: []*JoinPlanEntry{entry},
		byKey:   map[string]*JoinPlanEntry{entry.Path.Key(): entry},
	}
}

// Plan merges the access paths of populate, orderBy and filter directives,
// in that order, into a single join plan. Every prefix of every path is
// planned once and reused by all directives touching it, so aliases are
// stable across identical queries.
func Plan(spec QuerySpec) (*JoinPlan, error) {
	if spec.Root == nil {
		return nil, fmt.Errorf("query has no root entity")
	}
	plan := newJoinPlan(spec.Root)

	for _, p := range spec.Populate {
		if err := plan.require(p, KindEagerLoad); err != nil {
			return nil, err
		}
	}
	for _, term := range spec.OrderBy {
		if err := plan.require(term.Path, KindOrderBy); err != nil {
			return nil, err
		}
	}
	for _, p := range spec.Where.Paths() {
		if err := plan.require(p, KindFilter); err != nil {
			return nil, err
		}
	}

	if (spec.Limit != nil || spec.Offset != nil) && plan.HasCollection() {
		return nil, ErrPaginatedCollection
	}

	return plan, nil
}

// require ensures a join exists for every prefix of path, tagging each with kind
func (p *JoinPlan) require(path AccessPath, kind Kind) error {
	if path.Root == nil || path.Root.Name != p.root.Path.Root.Name {
		return fmt.Errorf("%w: %s", ErrForeignRoot, path.Key())
	}
	if path.IsRoot() {
		p.root.Kind |= kind
		return nil
	}

	parent := p.root
	parent.Kind |= kind
	for _, prefix := range path.Prefixes() {
		key := prefix.Key()
		entry, ok := p.byKey[key]
		if !ok {
			entry = &JoinPlanEntry{
				Path:     prefix,
				Alias:    aliasFor(len(p.entries)),
				Parent:   parent,
				JoinType: joinTypeFor(parent, prefix),
			}
			p.entries = append(p.entries, entry)
			p.byKey[key] = entry
		}
		entry.Kind |= kind
		parent = entry
	}
	return nil
}

// joinTypeFor picks LEFT when the hop may find no row, or when the parent is
// already outer-joined so an inner join would discard the owner row
func joinTypeFor(parent *JoinPlanEntry, path AccessPath) JoinType {
	last, _ := path.Last()
	if parent.JoinType == LeftJoin || last.Relation.Nullable || last.Relation.IsCollection() {
		return LeftJoin
	}
	return InnerJoin
}

func aliasFor(i int) string {
	return fmt.Sprintf("e%d", i)
}

// Root returns the FROM entry
func (p *JoinPlan) Root() *JoinPlanEntry {
	return p.root
}

// Entries returns the root followed by every join in planned order
func (p *JoinPlan) Entries() []*JoinPlanEntry {
	out := make([]*JoinPlanEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Joins returns every join in planned order, without the root
func (p *JoinPlan) Joins() []*JoinPlanEntry {
	return p.Entries()[1:]
}

// EagerEntries returns the root and every join tagged for eager loading
func (p *JoinPlan) EagerEntries() []*JoinPlanEntry {
	out := []*JoinPlanEntry{p.root}
	for _, e := range p.entries[1:] {
		if e.Kind.Has(KindEagerLoad) {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the entry planned for a path
func (p *JoinPlan) Lookup(path AccessPath) (*JoinPlanEntry, bool) {
	e, ok := p.byKey[path.Key()]
	return e, ok
}

// Len returns the number of joins, not counting the root
func (p *JoinPlan) Len() int {
	return len(p.entries) - 1
}

// HasCollection returns true if any join is a to-many relation
func (p *JoinPlan) HasCollection() bool {
	for _, e := range p.entries[1:] {
		if e.Relation().IsCollection() {
			return true
		}
	}
	return false
}

// String renders the plan, one entry per line
func (p *JoinPlan) String() string {
	var b strings.Builder
	for _, e := range p.entries {
		if e.IsRoot() {
			fmt.Fprintf(&b, "%s FROM %s\n", e.Alias, e.Target().Name)
			continue
		}
		fmt.Fprintf(&b, "%s %s JOIN %s via %s [%s]\n", e.Alias, e.JoinType, e.Target().Name, e.Path, e.Kind)
	}
	return b.String()
}
