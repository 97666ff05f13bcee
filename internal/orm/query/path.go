package query

import (
	"strings"

	"github.com/conduit-lang/relquery/internal/orm/schema"
)

// Step is one resolved relation hop of an access path
type Step struct {
	Relation *schema.Relation
	Source   *schema.EntityMetadata
	Target   *schema.EntityMetadata
}

// AccessPath is a resolved sequence of relation hops from a root entity.
// Two paths are equal when their root and relation names are equal.
type AccessPath struct {
	Root  *schema.EntityMetadata
	Steps []Step
}

// RootPath returns the empty path at an entity
func RootPath(root *schema.EntityMetadata) AccessPath {
	return AccessPath{Root: root}
}

// Len returns the number of hops
func (p AccessPath) Len() int {
	return len(p.Steps)
}

// IsRoot returns true for the empty path
func (p AccessPath) IsRoot() bool {
	return len(p.Steps) == 0
}

// Names returns the relation names of each hop
func (p AccessPath) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Relation.Name
	}
	return names
}

// String returns the dotted form of the path, e.g. "model.manufacturer"
func (p AccessPath) String() string {
	return strings.Join(p.Names(), ".")
}

// Key identifies the path structurally; equal paths have equal keys
func (p AccessPath) Key() string {
	root := ""
	if p.Root != nil {
		root = p.Root.Name
	}
	return root + ":" + p.String()
}

// Equal reports structural equality
func (p AccessPath) Equal(other AccessPath) bool {
	return p.Key() == other.Key()
}

// Target returns the entity the path leads to
func (p AccessPath) Target() *schema.EntityMetadata {
	if len(p.Steps) == 0 {
		return p.Root
	}
	return p.Steps[len(p.Steps)-1].Target
}

// Last returns the final hop
func (p AccessPath) Last() (Step, bool) {
	if len(p.Steps) == 0 {
		return Step{}, false
	}
	return p.Steps[len(p.Steps)-1], true
}

// Prefix returns the path truncated to n hops
func (p AccessPath) Prefix(n int) AccessPath {
	if n > len(p.Steps) {
		n = len(p.Steps)
	}
	steps := make([]Step, n)
	copy(steps, p.Steps[:n])
	return AccessPath{Root: p.Root, Steps: steps}
}

// Parent returns the path without its final hop
func (p AccessPath) Parent() AccessPath {
	if len(p.Steps) == 0 {
		return p
	}
	return p.Prefix(len(p.Steps) - 1)
}

// Prefixes returns every non-empty prefix, shortest first. The path itself
// is the last element.
func (p AccessPath) Prefixes() []AccessPath {
	out := make([]AccessPath, len(p.Steps))
	for i := range p.Steps {
		out[i] = p.Prefix(i + 1)
	}
	return out
}

// Child returns a new path extended by one hop
func (p AccessPath) Child(rel *schema.Relation, target *schema.EntityMetadata) AccessPath {
	steps := make([]Step, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	steps = append(steps, Step{Relation: rel, Source: p.Target(), Target: target})
	return AccessPath{Root: p.Root, Steps: steps}
}

// HasCollection returns true if any hop is a to-many relation
func (p AccessPath) HasCollection() bool {
	for _, s := range p.Steps {
		if s.Relation.IsCollection() {
			return true
		}
	}
	return false
}

// Resolver validates relation paths against the metadata registry
type Resolver struct {
	registry *schema.Registry
}

// NewResolver creates a resolver over a registry
func NewResolver(registry *schema.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Registry returns the registry the resolver walks
func (r *Resolver) Registry() *schema.Registry {
	return r.registry
}

// Resolve resolves a dotted relation path such as "model.manufacturer"
func (r *Resolver) Resolve(root *schema.EntityMetadata, dotted string) (AccessPath, error) {
	return r.ResolveSegments(root, strings.Split(dotted, "."))
}

// ResolveSegments resolves a relation path given as separate segments
func (r *Resolver) ResolveSegments(root *schema.EntityMetadata, segments []string) (AccessPath, error) {
	path := RootPath(root)
	for _, seg := range segments {
		next, err := r.step(path, seg, strings.Join(segments, "."))
		if err != nil {
			return AccessPath{}, err
		}
		path = next
	}
	return path, nil
}

// step extends path by the relation named seg
func (r *Resolver) step(path AccessPath, seg, full string) (AccessPath, error) {
	current := path.Target()
	rel, ok := current.Relation(seg)
	if !ok {
		if current.HasField(seg) {
			return AccessPath{}, &NotARelationError{Entity: current.Name, Path: full, Segment: seg}
		}
		return AccessPath{}, &UnknownRelationError{Entity: current.Name, Path: full, Segment: seg}
	}
	target, err := r.registry.Lookup(rel.Target)
	if err != nil {
		return AccessPath{}, err
	}
	return path.Child(rel, target), nil
}
