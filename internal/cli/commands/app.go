package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/catalog"
	"github.com/conduit-lang/relquery/internal/cli/config"
	"github.com/conduit-lang/relquery/internal/logging"
	"github.com/conduit-lang/relquery/internal/orm"
	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// app carries what every database-backed command needs
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *schema.Registry
	metrics  *prometheus.Registry
	db       *sql.DB
	orm      *orm.ORM
}

// loadApp reads the configuration and builds the logger and catalog registry
func loadApp() (*app, error) {
	cfg, err := config.Load(configPathFlag)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	registry, err := catalog.Registry(cfg.Naming.Strategy())
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, registry: registry}, nil
}

// connect opens the configured database and initializes the ORM
func (a *app) connect(ctx context.Context) error {
	db, dialect, err := storage.Open(ctx, a.cfg.Database.Storage())
	if err != nil {
		return err
	}

	a.metrics = prometheus.NewRegistry()
	exec := storage.NewSQLExecutor(db,
		storage.WithLogger(a.logger.Named("storage")),
		storage.WithMetrics(storage.NewMetrics(a.metrics)),
	)

	o, err := orm.Init(orm.Config{
		Registry: a.registry,
		Executor: exec,
		Dialect:  dialect,
		Logger:   a.logger,
	})
	if err != nil {
		db.Close()
		return err
	}

	a.db = db
	a.orm = o
	a.logger.Debug("connected", zap.String("driver", a.cfg.Database.Driver), zap.String("dialect", dialect.String()))
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

// statementCounts returns the executed statement totals by outcome
func (a *app) statementCounts() (map[string]float64, error) {
	counts := make(map[string]float64)
	if a.metrics == nil {
		return counts, nil
	}
	families, err := a.metrics.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if mf.GetName() == "relquery_statements_total" {
			addCounters(counts, mf)
		}
	}
	return counts, nil
}

func addCounters(counts map[string]float64, mf *dto.MetricFamily) {
	for _, m := range mf.GetMetric() {
		outcome := ""
		for _, label := range m.GetLabel() {
			if label.GetName() == "outcome" {
				outcome = label.GetValue()
			}
		}
		counts[outcome] += m.GetCounter().GetValue()
	}
}
