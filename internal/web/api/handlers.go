package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/relquery/internal/orm"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/web/middleware"
	"github.com/conduit-lang/relquery/internal/web/response"
)

type handler struct {
	orm    *orm.ORM
	logger *zap.Logger
}

// findResponse is the body of list and show requests
type findResponse struct {
	Data interface{} `json:"data"`
}

// planEntry is one row of an explained join plan
type planEntry struct {
	Alias  string `json:"alias"`
	Join   string `json:"join"`
	Entity string `json:"entity"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
}

type explainResponse struct {
	Dialect string        `json:"dialect"`
	Plan    []planEntry   `json:"plan"`
	SQL     string        `json:"sql"`
	Args    []interface{} `json:"args"`
}

func (h *handler) find(w http.ResponseWriter, r *http.Request) {
	filter, opts, err := parseRequest(r)
	if err != nil {
		response.Render(w, err)
		return
	}

	result, err := h.orm.Session().Find(r.Context(), chi.URLParam(r, "entity"), filter, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := make([]map[string]interface{}, len(result))
	for i, e := range result {
		data[i] = renderEntity(e)
	}
	response.RenderJSON(w, http.StatusOK, findResponse{Data: data})
}

func (h *handler) findOne(w http.ResponseWriter, r *http.Request) {
	filter, opts, err := parseRequest(r)
	if err != nil {
		response.Render(w, err)
		return
	}

	root := chi.URLParam(r, "entity")
	meta, err := h.orm.Registry().Lookup(root)
	if err != nil {
		response.Render(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		filter[meta.PrimaryKey] = n
	} else {
		filter[meta.PrimaryKey] = id
	}

	e, err := h.orm.Session().FindOne(r.Context(), root, filter, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, findResponse{Data: renderEntity(e)})
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	filter, _, err := parseRequest(r)
	if err != nil {
		response.Render(w, err)
		return
	}

	n, err := h.orm.Session().Count(r.Context(), chi.URLParam(r, "entity"), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *handler) explain(w http.ResponseWriter, r *http.Request) {
	filter, opts, err := parseRequest(r)
	if err != nil {
		response.Render(w, err)
		return
	}

	stmt, plan, err := h.orm.Session().Explain(chi.URLParam(r, "entity"), filter, opts)
	if err != nil {
		response.Render(w, err)
		return
	}

	resp := explainResponse{Dialect: h.orm.Dialect().String(), SQL: stmt.SQL, Args: stmt.Args}
	if resp.Args == nil {
		resp.Args = []interface{}{}
	}
	for _, e := range plan.Entries() {
		entry := planEntry{Alias: e.Alias, Entity: e.Target().Name, Path: e.Path.String(), Kind: e.Kind.String()}
		if e.IsRoot() {
			entry.Join = "FROM"
		} else {
			entry.Join = e.JoinType.String()
		}
		resp.Plan = append(resp.Plan, entry)
	}
	response.RenderJSON(w, http.StatusOK, resp)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := response.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("query failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
	response.RenderError(w, status, err)
}

// parseRequest reads the find directives from the query string. populate and
// orderBy accept repeated or comma separated values; where is repeated.
func parseRequest(r *http.Request) (query.Filter, query.FindOptions, error) {
	q := r.URL.Query()
	opts := query.FindOptions{Populate: splitList(q["populate"])}

	for _, term := range splitList(q["orderBy"]) {
		m, err := query.ParseOrderTerm(term)
		if err != nil {
			return nil, opts, fmt.Errorf("orderBy %q: %w", term, err)
		}
		opts.OrderBy = append(opts.OrderBy, m)
	}

	filter, err := query.ParseFilterTerms(q["where"])
	if err != nil {
		return nil, opts, err
	}

	if opts.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return nil, opts, err
	}
	if opts.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return nil, opts, err
	}
	return filter, opts, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func intParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, response.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return &n, nil
}
