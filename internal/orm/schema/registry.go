package schema

import "fmt"

// Registry holds the metadata of every entity known to the ORM. It never
// changes after Builder.Build returns it, so it is shared between concurrent
// queries without locking.
type Registry struct {
	entities map[string]*EntityMetadata
	order    []string
}

func newRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntityMetadata),
		order:    make([]string, 0),
	}
}

func (r *Registry) add(meta *EntityMetadata) {
	r.entities[meta.Name] = meta
	r.order = append(r.order, meta.Name)
}

// Get retrieves entity metadata by name
func (r *Registry) Get(name string) (*EntityMetadata, bool) {
	meta, ok := r.entities[name]
	return meta, ok
}

// Lookup retrieves entity metadata by name, failing with ErrUnknownEntity
func (r *Registry) Lookup(name string) (*EntityMetadata, error) {
	meta, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return meta, nil
}

// MustGet retrieves entity metadata by name and panics if it is missing
func (r *Registry) MustGet(name string) *EntityMetadata {
	meta, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return meta
}

// Names returns entity names in registration order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered entities
func (r *Registry) Len() int {
	return len(r.order)
}

// DependencyOrder returns entity names so that every entity comes after the
// targets of its many-to-one relations
func (r *Registry) DependencyOrder() ([]string, error) {
	return NewRelationshipGraph(r).TopologicalSort()
}
