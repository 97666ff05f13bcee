package api

import (
	"github.com/conduit-lang/relquery/internal/orm/entity"
)

// renderEntity converts an entity graph to JSON-ready maps. A populated
// relation is nested; an unpopulated many-to-one is rendered as its foreign
// key value. An entity already being rendered higher up the graph is
// rendered as its id.
func renderEntity(e *entity.Entity) map[string]interface{} {
	return renderWith(e, map[*entity.Entity]bool{})
}

func renderWith(e *entity.Entity, active map[*entity.Entity]bool) map[string]interface{} {
	out := e.Values()
	active[e] = true
	defer delete(active, e)

	for _, rel := range e.Meta().Relations() {
		if rel.IsCollection() {
			members, ok := e.Collection(rel.Name)
			if !ok {
				continue
			}
			items := make([]interface{}, len(members))
			for i, m := range members {
				items[i] = renderRef(m, active)
			}
			out[rel.Name] = items
			continue
		}

		if target, ok := e.Related(rel.Name); ok {
			if target == nil {
				out[rel.Name] = nil
			} else {
				out[rel.Name] = renderRef(target, active)
			}
			continue
		}
		if ref, ok := e.Reference(rel.Name); ok {
			out[rel.Name] = ref
		}
	}
	return out
}

func renderRef(e *entity.Entity, active map[*entity.Entity]bool) interface{} {
	if active[e] {
		return e.ID()
	}
	return renderWith(e, active)
}
