// Package hydrate turns flat result rows into entity graphs.
package hydrate

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/orm/entity"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

type identityKey struct {
	entity string
	id     interface{}
}

// Hydrator materializes rows produced by a planned query
type Hydrator struct {
	logger *zap.Logger
}

// New creates a hydrator; a nil logger discards output
func New(logger *zap.Logger) *Hydrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hydrator{logger: logger}
}

// Hydrate builds one root entity per distinct root primary key, in the order
// roots first appear in rows. Every eager-load join of the plan is attached
// to its parent instance. Joins planned only for ordering or filtering are
// ignored, leaving those relations unpopulated.
//
// Each call has its own identity map: two rows carrying the same primary key
// of an entity type yield the same instance.
func (h *Hydrator) Hydrate(plan *query.JoinPlan, rows []storage.Row) ([]*entity.Entity, error) {
	identity := make(map[identityKey]*entity.Entity)
	seenRoots := make(map[identityKey]bool)
	eager := plan.EagerEntries()
	roots := make([]*entity.Entity, 0)

	for _, row := range rows {
		instances := make(map[*query.JoinPlanEntry]*entity.Entity, len(eager))

		for _, e := range eager {
			meta := e.Target()
			pkLabel := query.ColumnLabel(e.Alias, meta.PrimaryKeyColumn())
			raw, ok := row[pkLabel]
			if !ok || (e.IsRoot() && raw == nil) {
				return nil, &IncompleteRowError{Entity: meta.Name, Alias: e.Alias, Column: pkLabel}
			}

			var parent *entity.Entity
			if !e.IsRoot() {
				parent = instances[e.Parent]
				if parent == nil {
					// The parent was outer-joined to nothing
					continue
				}
			}

			if raw == nil {
				if err := attachEmpty(parent, e); err != nil {
					return nil, err
				}
				continue
			}

			key := identityKey{entity: meta.Name, id: normalize(raw)}
			inst, exists := identity[key]
			if !exists {
				var err error
				inst, err = materialize(e, row, key.id)
				if err != nil {
					return nil, err
				}
				identity[key] = inst
			}
			instances[e] = inst

			if e.IsRoot() {
				if !seenRoots[key] {
					seenRoots[key] = true
					roots = append(roots, inst)
				}
				continue
			}
			if err := attach(parent, e, inst); err != nil {
				return nil, err
			}
		}
	}

	h.logger.Debug("hydrated",
		zap.Int("rows", len(rows)),
		zap.Int("roots", len(roots)),
		zap.Int("instances", len(identity)),
	)
	return roots, nil
}

// materialize creates an instance from the columns labelled with the entry's alias
func materialize(e *query.JoinPlanEntry, row storage.Row, id interface{}) (*entity.Entity, error) {
	meta := e.Target()
	inst := entity.New(meta)
	inst.SetID(id)

	for _, col := range meta.Columns() {
		v, ok := row[query.ColumnLabel(e.Alias, col.Name)]
		if !ok {
			continue
		}
		v = normalize(v)
		switch {
		case col.Relation != nil:
			if err := inst.SetReference(col.Relation.Name, v); err != nil {
				return nil, err
			}
		case col.Field.Name != meta.PrimaryKey:
			if err := inst.Set(col.Field.Name, v); err != nil {
				return nil, err
			}
		}
	}
	return inst, nil
}

func attach(parent *entity.Entity, e *query.JoinPlanEntry, inst *entity.Entity) error {
	rel := e.Relation()
	if rel.IsCollection() {
		return parent.AddToCollection(rel.Name, inst)
	}
	return parent.SetRelated(rel.Name, inst)
}

func attachEmpty(parent *entity.Entity, e *query.JoinPlanEntry) error {
	rel := e.Relation()
	if rel.IsCollection() {
		return parent.InitCollection(rel.Name)
	}
	if parent.IsPopulated(rel.Name) {
		return nil
	}
	return parent.SetRelated(rel.Name, nil)
}

// normalize maps driver values onto comparable, canonical Go values
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case []byte:
		return string(n)
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	default:
		return v
	}
}
