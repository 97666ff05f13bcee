// Package orm is the caller-facing entry point: it wires the registry, the
// storage executor and the query pipeline into sessions.
package orm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/orm/hydrate"
	"github.com/conduit-lang/relquery/internal/orm/migrate"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// Config holds everything Init needs. There is no global state; every
// dependency is passed here.
type Config struct {
	Registry *schema.Registry
	Executor storage.Executor
	Dialect  storage.Dialect
	Logger   *zap.Logger
}

// ORM is an initialized mapper. It is safe for concurrent use; per-request
// state lives in sessions.
type ORM struct {
	registry  *schema.Registry
	exec      storage.Executor
	dialect   storage.Dialect
	logger    *zap.Logger
	resolver  *query.Resolver
	hydrator  *hydrate.Hydrator
	generator *migrate.Generator
}

// Init validates the configuration and builds an ORM
func Init(cfg Config) (*ORM, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidConfig)
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("%w: executor is required", ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ORM{
		registry:  cfg.Registry,
		exec:      cfg.Executor,
		dialect:   cfg.Dialect,
		logger:    logger,
		resolver:  query.NewResolver(cfg.Registry),
		hydrator:  hydrate.New(logger.Named("hydrate")),
		generator: migrate.NewGenerator(cfg.Registry, cfg.Dialect),
	}, nil
}

// Registry returns the metadata registry
func (o *ORM) Registry() *schema.Registry {
	return o.registry
}

// Dialect returns the storage dialect statements are built for
func (o *ORM) Dialect() storage.Dialect {
	return o.dialect
}

// Session opens a new unit of work
func (o *ORM) Session() *Session {
	return &Session{orm: o, logger: o.logger.Named("session")}
}

// RefreshDatabase drops and recreates every table of the registry
func (o *ORM) RefreshDatabase(ctx context.Context) error {
	if err := migrate.Refresh(ctx, o.exec, o.registry, o.generator); err != nil {
		return err
	}
	o.logger.Info("database refreshed", zap.Int("tables", o.registry.Len()))
	return nil
}
