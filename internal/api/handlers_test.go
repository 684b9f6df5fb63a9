package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"mhdash/internal/cache"
	"mhdash/internal/dashboard"
	"mhdash/internal/engine"
	"mhdash/internal/models"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	table *engine.Table
	err   error
}

func (s staticSource) Load() (*engine.Table, error) { return s.table, s.err }

func newTestServer(t *testing.T, responses cache.Provider) *echo.Echo {
	t.Helper()
	content, err := os.ReadFile("../engine/testdata/sample.csv")
	require.NoError(t, err)
	tbl, err := engine.Parse(content, engine.Options{})
	require.NoError(t, err)
	return NewServer(NewHandler(staticSource{table: tbl}), responses, time.Minute)
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)
	rec := get(t, e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	down := NewServer(NewHandler(staticSource{err: errors.New("boom")}), nil, 0)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, down, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, down, "/api/summary").Code)
}

func TestGetSummary(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(t, e, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	s := decode[models.Summary](t, rec)
	assert.Equal(t, 8, s.TotalResponses)
	assert.Equal(t, 5, s.Countries)
	assert.Equal(t, 4, s.Occupations)

	rec = get(t, e, "/api/summary?gender=Male&start=2014-01-01&end=2014-12-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[models.Summary](t, rec).TotalResponses)

	rec = get(t, e, "/api/summary?country=India&country=Canada")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[models.Summary](t, rec).TotalResponses)
}

func TestSelectionParams(t *testing.T) {
	e := newTestServer(t, nil)

	q := url.Values{"exclude": {"self_employed:" + engine.NotSpecified}}
	rec := get(t, e, "/api/summary?"+q.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decode[models.Summary](t, rec).TotalResponses)

	rec = get(t, e, "/api/summary?gender=Male&exclude=Gender:Male")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[models.Summary](t, rec).TotalResponses)

	rec = get(t, e, "/api/summary?where=Coping_Struggles:Yes&where=Year:2016")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[models.Summary](t, rec).TotalResponses)

	for _, target := range []string{
		"/api/summary?start=2014-13-01",
		"/api/summary?start=2016-01-01&end=2015-01-01",
		"/api/summary?where=Coping_Struggles",
		"/api/summary?where=Year:2016&exclude=Year:2014",
		"/api/summary?where=Salary:high",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, e, target).Code, target)
	}
}

func TestGetAggregate(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(t, e, "/api/aggregate?group_by=Country&order=desc&top=2")
	require.Equal(t, http.StatusOK, rec.Code)
	agg := decode[models.Aggregation](t, rec)
	assert.Equal(t, []string{"Country"}, agg.GroupBy)
	assert.Equal(t, 8, agg.Rows)
	assert.Equal(t, []models.GroupCount{
		{Key: []string{"United States"}, Count: 3},
		{Key: []string{"India"}, Count: 2},
	}, agg.Groups)

	rec = get(t, e, "/api/aggregate?group_by=Gender&group_by=Year&gender=Female&order=key")
	require.Equal(t, http.StatusOK, rec.Code)
	agg = decode[models.Aggregation](t, rec)
	assert.Equal(t, []models.GroupCount{
		{Key: []string{"Female", "2014"}, Count: 2},
		{Key: []string{"Female", "2015"}, Count: 1},
		{Key: []string{"Female", "2016"}, Count: 1},
	}, agg.Groups)

	for _, target := range []string{
		"/api/aggregate",
		"/api/aggregate?group_by=Salary",
		"/api/aggregate?group_by=Country&order=sideways",
		"/api/aggregate?group_by=Country&top=0",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, e, target).Code, target)
	}
}

func TestGetResponses(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(t, e, "/api/responses?limit=3&offset=6")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[models.Page[engine.Record]](t, rec)
	assert.Equal(t, 8, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "India", page.Data[0].Country)
	assert.Equal(t, "Canada", page.Data[1].Country)

	rec = get(t, e, "/api/responses?offset=100")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[models.Page[engine.Record]](t, rec)
	assert.Empty(t, page.Data)
	assert.Equal(t, 50, page.Limit)
}

func TestGetOptions(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(t, e, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decode[models.FilterOptions](t, rec)
	assert.Equal(t, []string{"Female", "Male"}, opts.Columns[engine.ColGender])
	assert.Len(t, opts.Columns[engine.ColCountry], 5)
	require.NotNil(t, opts.MinDate)
	require.NotNil(t, opts.MaxDate)
	assert.Equal(t, 2014, opts.MinDate.Year())
	assert.Equal(t, 2016, opts.MaxDate.Year())
}

func TestCharts(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(t, e, "/api/charts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ChartInfo](t, rec), len(dashboard.Catalog))

	rec = get(t, e, "/api/charts?tab="+dashboard.TabWork)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, info := range decode[[]models.ChartInfo](t, rec) {
		assert.Equal(t, dashboard.TabWork, info.Tab)
	}

	rec = get(t, e, "/api/charts/top-coping-countries?gender=Female")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[models.ChartData](t, rec)
	assert.Equal(t, "top-coping-countries", data.ID)
	assert.Equal(t, []models.GroupCount{
		{Key: []string{"Australia"}, Count: 1},
		{Key: []string{"India"}, Count: 1},
	}, data.Groups)

	assert.Equal(t, http.StatusNotFound, get(t, e, "/api/charts/nope").Code)
}

func TestResponseCache(t *testing.T) {
	responses := cache.NewMemory(16, time.Minute)
	e := newTestServer(t, responses)

	first := get(t, e, "/api/aggregate?group_by=Country&gender=Male")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	// Same query, parameters reordered.
	second := get(t, e, "/api/aggregate?gender=Male&group_by=Country")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	bad := get(t, e, "/api/aggregate")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "MISS", get(t, e, "/api/aggregate").Header().Get("X-Cache"))
	assert.Equal(t, 1, responses.Len())

	assert.Empty(t, get(t, e, "/healthz").Header().Get("X-Cache"))
}
