package orm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/orm/entity"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// Session is a unit of work: it queues new entities until Flush and runs
// finds. Each find has its own identity map, so instances are not shared
// across calls.
type Session struct {
	orm    *ORM
	logger *zap.Logger

	mu      sync.Mutex
	pending []*entity.Entity
}

// Create builds a new entity and queues it for insertion. Values are keyed by
// field or relation name. A many-to-one relation takes either another
// *entity.Entity (possibly pending in this session) or a raw foreign key.
func (s *Session) Create(entityName string, values map[string]interface{}) (*entity.Entity, error) {
	meta, err := s.orm.registry.Lookup(entityName)
	if err != nil {
		return nil, err
	}

	e := entity.New(meta)
	for _, key := range sortedKeys(values) {
		value := values[key]

		if rel, ok := meta.Relation(key); ok {
			if rel.IsCollection() {
				return nil, fmt.Errorf("%w: %s.%s", ErrCollectionValue, meta.Name, key)
			}
			if target, ok := value.(*entity.Entity); ok {
				if target != nil && target.Meta().Name != rel.Target {
					return nil, fmt.Errorf("%s.%s expects %s, got %s", meta.Name, key, rel.Target, target.Meta().Name)
				}
				err = e.SetRelated(key, target)
			} else {
				err = e.SetReference(key, value)
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		if err := e.Set(key, value); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
	return e, nil
}

// Pending returns the number of entities waiting for Flush
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Clear drops every pending entity
func (s *Session) Clear() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Flush inserts the pending entities in one transaction. Owners are inserted
// before the entities referencing them, and generated ids are assigned back
// so later inserts pick up their foreign keys. On failure nothing is
// committed, the pending list is kept and ids assigned during the attempt are
// reset.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	order, err := s.orm.registry.DependencyOrder()
	if err != nil {
		return err
	}
	byType := make(map[string][]*entity.Entity)
	for _, e := range s.pending {
		byType[e.Meta().Name] = append(byType[e.Meta().Name], e)
	}

	var assigned []*entity.Entity
	err = s.orm.exec.Transaction(ctx, func(tx storage.Executor) error {
		for _, name := range order {
			for _, e := range byType[name] {
				generated, err := s.insert(ctx, tx, e)
				if err != nil {
					return err
				}
				if generated {
					assigned = append(assigned, e)
				}
			}
		}
		return nil
	})
	if err != nil {
		for _, e := range assigned {
			e.SetID(nil)
		}
		return err
	}

	s.logger.Debug("flushed", zap.Int("entities", len(s.pending)))
	s.pending = nil
	return nil
}

// insert writes one entity and reports whether its id was generated
func (s *Session) insert(ctx context.Context, tx storage.Executor, e *entity.Entity) (bool, error) {
	meta := e.Meta()
	values, err := insertValues(e)
	if err != nil {
		return false, err
	}

	stmt, err := query.BuildInsert(meta, values, s.orm.dialect)
	if err != nil {
		return false, err
	}
	rows, err := tx.Execute(ctx, stmt)
	if err != nil {
		return false, err
	}

	if e.ID() != nil {
		return false, nil
	}
	if len(rows) == 0 {
		return false, fmt.Errorf("insert into %s returned no primary key", meta.TableName)
	}
	e.SetID(rows[0][meta.PrimaryKeyColumn()])
	return true, nil
}

// insertValues collects the column values of an entity
func insertValues(e *entity.Entity) (map[string]interface{}, error) {
	meta := e.Meta()
	values := make(map[string]interface{})

	for _, col := range meta.Columns() {
		switch {
		case col.Relation != nil:
			name := col.Relation.Name
			if target, ok := e.Related(name); ok && target != nil && target.ID() == nil {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnsavedReference, meta.Name, name)
			}
			if ref, ok := e.Reference(name); ok {
				values[col.Name] = ref
			}
		case col.Field.Name == meta.PrimaryKey:
			if id := e.ID(); id != nil {
				values[col.Name] = id
			}
		default:
			if v, ok := e.Get(col.Field.Name); ok {
				values[col.Name] = v
			}
		}
	}
	return values, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
