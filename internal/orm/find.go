package orm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/orm/entity"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// Explain resolves, plans and builds a find without executing it. Any path
// error is returned here.
func (s *Session) Explain(root string, filter query.Filter, opts query.FindOptions) (storage.Statement, *query.JoinPlan, error) {
	meta, err := s.orm.registry.Lookup(root)
	if err != nil {
		return storage.Statement{}, nil, err
	}

	spec, err := s.orm.resolver.Spec(meta, filter, opts)
	if err != nil {
		return storage.Statement{}, nil, err
	}
	plan, err := query.Plan(spec)
	if err != nil {
		return storage.Statement{}, nil, err
	}
	stmt, err := query.Build(plan, spec, s.orm.dialect)
	if err != nil {
		return storage.Statement{}, nil, err
	}
	return stmt, plan, nil
}

// Find loads the root entities matching filter. Relations named in
// opts.Populate are attached; ordering by a relation path joins it without
// populating it. The statement is sent once; storage errors are returned
// unchanged.
func (s *Session) Find(ctx context.Context, root string, filter query.Filter, opts query.FindOptions) ([]*entity.Entity, error) {
	log := s.logger.With(zap.String("query_id", uuid.NewString()), zap.String("root", root))

	stmt, plan, err := s.Explain(root, filter, opts)
	if err != nil {
		log.Debug("find rejected", zap.Error(err))
		return nil, err
	}

	start := time.Now()
	rows, err := s.orm.exec.Execute(ctx, stmt)
	if err != nil {
		log.Debug("find failed", zap.Error(err))
		return nil, err
	}

	result, err := s.orm.hydrator.Hydrate(plan, rows)
	if err != nil {
		return nil, err
	}

	log.Debug("find",
		zap.Int("joins", plan.Len()),
		zap.Int("rows", len(rows)),
		zap.Int("results", len(result)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

// FindOne returns the first entity matching filter, or ErrNotFound. When a
// populated collection rules out LIMIT, the full result is loaded instead.
func (s *Session) FindOne(ctx context.Context, root string, filter query.Filter, opts query.FindOptions) (*entity.Entity, error) {
	limited := opts
	one := 1
	limited.Limit = &one

	result, err := s.Find(ctx, root, filter, limited)
	if errors.Is(err, query.ErrPaginatedCollection) {
		unlimited := opts
		unlimited.Limit = nil
		unlimited.Offset = nil
		result, err = s.Find(ctx, root, filter, unlimited)
	}
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	return result[0], nil
}

// Count returns the number of root entities matching filter
func (s *Session) Count(ctx context.Context, root string, filter query.Filter) (int64, error) {
	meta, err := s.orm.registry.Lookup(root)
	if err != nil {
		return 0, err
	}
	spec, err := s.orm.resolver.Spec(meta, filter, query.FindOptions{})
	if err != nil {
		return 0, err
	}
	stmt, err := query.BuildCount(spec, s.orm.dialect)
	if err != nil {
		return 0, err
	}

	rows, err := s.orm.exec.Execute(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return toInt64(rows[0]["count"])
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count value %T", v)
	}
}
