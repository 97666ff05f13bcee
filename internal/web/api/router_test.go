package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conduit-lang/relquery/internal/catalog"
	"github.com/conduit-lang/relquery/internal/orm"
	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := storage.Open(ctx, storage.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg, err := catalog.Registry(schema.DefaultNaming())
	require.NoError(t, err)

	metrics := prometheus.NewRegistry()
	logger := zaptest.NewLogger(t)
	o, err := orm.Init(orm.Config{
		Registry: reg,
		Executor: storage.NewSQLExecutor(db, storage.WithMetrics(storage.NewMetrics(metrics))),
		Dialect:  dialect,
		Logger:   logger,
	})
	require.NoError(t, err)
	require.NoError(t, o.RefreshDatabase(ctx))
	require.NoError(t, catalog.Seed(ctx, o.Session()))

	h, err := NewRouter(Config{ORM: o, Gatherer: metrics, Logger: logger})
	require.NoError(t, err)
	return h
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestNewRouter_RequiresORM(t *testing.T) {
	_, err := NewRouter(Config{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFind_PopulateAndOrderBy(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/entities/Equipment?populate=model&orderBy=model.manufacturer.name:asc")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	equipment := data[0].(map[string]interface{})
	assert.Equal(t, "Equipment", equipment["displayName"])

	model, ok := equipment["model"].(map[string]interface{})
	require.True(t, ok, "model should be populated")
	assert.Equal(t, "Model", model["modelName"])
	// Joined for ordering only: rendered as the foreign key
	assert.Equal(t, float64(1), model["manufacturer"])
}

func TestFind_OrderByOnly(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/entities/Equipment?orderBy=model.manufacturer.name")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, float64(1), data[0].(map[string]interface{})["model"])
}

func TestFind_Collection(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/entities/Manufacturer?populate=models.manufacturer")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	models := data[0].(map[string]interface{})["models"].([]interface{})
	require.Len(t, models, 1)
	// The manufacturer is the root being rendered, so it collapses to its id
	assert.Equal(t, float64(1), models[0].(map[string]interface{})["manufacturer"])
}

func TestFindOne(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/entities/Equipment/1?populate=model.manufacturer")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	equipment := body["data"].(map[string]interface{})
	manufacturer := equipment["model"].(map[string]interface{})["manufacturer"].(map[string]interface{})
	assert.Equal(t, "Manufacturer", manufacturer["name"])

	rec, body = get(t, h, "/entities/Equipment/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["error"])
}

func TestCount(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/entities/Equipment/count?where=model.manufacturer.name=Manufacturer")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["count"])

	_, body = get(t, h, "/entities/Equipment/count?where=model.manufacturer.name=Nobody")
	assert.Equal(t, float64(0), body["count"])
}

func TestExplain(t *testing.T) {
	h := newTestRouter(t)

	rec, body := get(t, h, "/entities/Equipment/explain?populate=model&orderBy=model.manufacturer.name:desc&where=displayName=Drill")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "sqlite", body["dialect"])
	plan := body["plan"].([]interface{})
	require.Len(t, plan, 3)
	root := plan[0].(map[string]interface{})
	assert.Equal(t, "FROM", root["join"])
	assert.Equal(t, "Equipment", root["entity"])
	manufacturer := plan[2].(map[string]interface{})
	assert.Equal(t, "INNER", manufacturer["join"])
	assert.Equal(t, "model.manufacturer", manufacturer["path"])
	assert.Equal(t, "order-by", manufacturer["kind"])

	assert.Contains(t, body["sql"], `ORDER BY "e2"."name" DESC, "e0"."id" ASC`)
	assert.Equal(t, []interface{}{"Drill"}, body["args"])
}

func TestErrors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/entities/Widget", http.StatusNotFound, "not_found"},
		{"/entities/Equipment?populate=vendor", http.StatusBadRequest, "bad_request"},
		{"/entities/Equipment?orderBy=displayName:sideways", http.StatusBadRequest, "bad_request"},
		{"/entities/Equipment?where=displayName", http.StatusBadRequest, "bad_request"},
		{"/entities/Equipment?where=model=1&where=model.modelName=x", http.StatusBadRequest, "bad_request"},
		{"/entities/Equipment?limit=ten", http.StatusBadRequest, "bad_request"},
		{"/entities/Equipment?limit=-1", http.StatusBadRequest, "bad_request"},
		{"/entities/Manufacturer?populate=models&limit=1", http.StatusBadRequest, "bad_request"},
		{"/nowhere", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, body := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/entities/Equipment", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetrics(t *testing.T) {
	h := newTestRouter(t)
	get(t, h, "/entities/Equipment")

	rec, _ := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `relquery_statements_total{outcome="ok"}`)
}
