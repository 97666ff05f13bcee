package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/relquery/internal/catalog"
	"github.com/conduit-lang/relquery/internal/web/api"
	"github.com/conduit-lang/relquery/internal/web/server"
)

var (
	serveAddrFlag string
	serveSeedFlag bool
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve finds, counts and plans over HTTP",
		Long: `Start the HTTP query API over the configured database.

Routes:
  GET /entities/{entity}           find
  GET /entities/{entity}/{id}      find one by primary key
  GET /entities/{entity}/count     count
  GET /entities/{entity}/explain   join plan and SQL
  GET /metrics                     Prometheus metrics
  GET /healthz                     liveness

populate, orderBy (path:dir), where (path=value), limit and offset are
read from the query string.`,
		Example: `  # Serve an in-memory catalog
  relquery serve --seed

  # Then
  curl 'localhost:8080/entities/Equipment?populate=model&orderBy=model.manufacturer.name:asc'`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddrFlag, "addr", "", "Listen address (default from server.address)")
	cmd.Flags().BoolVar(&serveSeedFlag, "seed", false, "Recreate the catalog tables and insert the demo rows first")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	infoColor := color.New(color.FgCyan)

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.connect(ctx); err != nil {
		return err
	}
	if serveSeedFlag {
		if err := a.orm.RefreshDatabase(ctx); err != nil {
			return err
		}
		if err := catalog.Seed(ctx, a.orm.Session()); err != nil {
			return err
		}
	}

	handler, err := api.NewRouter(api.Config{ORM: a.orm, Gatherer: a.metrics, Logger: a.logger})
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig(handler)
	cfg.Address = a.cfg.Server.Address
	if serveAddrFlag != "" {
		cfg.Address = serveAddrFlag
	}
	cfg.ShutdownTimeout = a.cfg.Server.ShutdownTimeout
	cfg.Logger = a.logger.Named("server")

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	infoColor.Fprintf(out, "ℹ Serving %d entities on http://%s\n", a.registry.Len(), srv.Addr())
	return srv.Serve(ctx)
}
