// Package api exposes finds, counts and plans over HTTP.
//
//	GET /entities/{entity}?populate=model&orderBy=model.manufacturer.name:asc&where=displayName=Drill
//	GET /entities/{entity}/count?where=...
//	GET /entities/{entity}/explain?...
//	GET /entities/{entity}/{id}?populate=...
//	GET /healthz
//	GET /metrics
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/orm"
	"github.com/conduit-lang/relquery/internal/web/middleware"
	"github.com/conduit-lang/relquery/internal/web/response"
)

// Config holds the router dependencies
type Config struct {
	ORM *orm.ORM
	// Gatherer backs /metrics; the route is omitted when nil
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter builds the API handler
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.ORM == nil {
		return nil, fmt.Errorf("api: orm is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{orm: cfg.ORM, logger: logger}

	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	})

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/entities/{entity}", func(r chi.Router) {
		r.Get("/", h.find)
		r.Get("/count", h.count)
		r.Get("/explain", h.explain)
		r.Get("/{id}", h.findOne)
	})

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(logger.Named("http"), "/healthz", "/metrics"),
		middleware.Recovery(logger, response.RenderError),
	)
	return chain.Then(mux), nil
}
