package api

import (
	"errors"
	"net/http"
	"strconv"

	"mhdash/internal/dashboard"
	"mhdash/internal/engine"
	"mhdash/internal/models"

	"github.com/labstack/echo/v4"
)

// TableSource provides the loaded survey table.
type TableSource interface {
	Load() (*engine.Table, error)
}

type Handler struct {
	source TableSource
}

func NewHandler(source TableSource) *Handler {
	return &Handler{source: source}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api", mw...)
	api.GET("/options", h.GetOptions)
	api.GET("/responses", h.GetResponses)
	api.GET("/summary", h.GetSummary)
	api.GET("/aggregate", h.GetAggregate)
	api.GET("/charts", h.ListCharts)
	api.GET("/charts/:id", h.GetChart)
}

// --- HELPERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) load() (*engine.Table, error) {
	t, err := h.source.Load()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "survey data unavailable").SetInternal(err)
	}
	return t, nil
}

// tables returns the full table and the table narrowed by the request's
// selection parameters.
func (h *Handler) tables(c echo.Context) (full, selected *engine.Table, err error) {
	full, err = h.load()
	if err != nil {
		return nil, nil, err
	}
	sel, err := parseSelection(c.QueryParams(), full.Location())
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	selected, err = engine.Filter(full, sel)
	if err != nil {
		return nil, nil, engineError(err)
	}
	return full, selected, nil
}

// fingerprint keys cached responses to the loaded source.
func (h *Handler) fingerprint() string {
	t, err := h.source.Load()
	if err != nil {
		return ""
	}
	return t.Fingerprint()
}

func engineError(err error) error {
	var rangeErr *engine.InvalidRangeError
	if errors.As(err, &rangeErr) ||
		errors.Is(err, engine.ErrUnknownColumn) ||
		errors.Is(err, engine.ErrNoGroupColumns) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func toGroupCounts(groups []engine.Group) []models.GroupCount {
	out := make([]models.GroupCount, len(groups))
	for i, g := range groups {
		out[i] = models.GroupCount{Key: g.Key, Count: g.Count}
	}
	return out
}

func chartInfo(ch dashboard.Chart) models.ChartInfo {
	return models.ChartInfo{
		ID:      ch.ID,
		Tab:     ch.Tab,
		Title:   ch.Title,
		Kind:    string(ch.Kind),
		GroupBy: ch.GroupBy,
	}
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	if _, err := h.source.Load(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetOptions returns the values for the selection controls.
func (h *Handler) GetOptions(c echo.Context) error {
	full, err := h.load()
	if err != nil {
		return err
	}
	opts := models.FilterOptions{Columns: make(map[string][]string)}
	for _, col := range full.Columns() {
		values, err := full.Distinct(col)
		if err != nil {
			return err
		}
		opts.Columns[col] = values
	}
	if lo, hi, ok := full.DateBounds(); ok {
		opts.MinDate, opts.MaxDate = &lo, &hi
	}
	return c.JSON(http.StatusOK, opts)
}

// GetResponses pages through the selected records.
func (h *Handler) GetResponses(c echo.Context) error {
	_, selected, err := h.tables(c)
	if err != nil {
		return err
	}
	total := selected.Len()
	limit, offset := getPaginationParams(c, 50)

	page := models.Page[engine.Record]{Data: []engine.Record{}, Total: total, Limit: limit, Offset: offset}
	if offset >= total {
		return c.JSON(http.StatusOK, page)
	}
	end := min(offset+limit, total)
	for i := offset; i < end; i++ {
		page.Data = append(page.Data, selected.Record(i))
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetSummary(c echo.Context) error {
	_, selected, err := h.tables(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.Summarize(selected))
}

// GetAggregate counts the selected records by the group_by columns.
// top keeps the N largest groups; order then arranges what is left.
func (h *Handler) GetAggregate(c echo.Context) error {
	_, selected, err := h.tables(c)
	if err != nil {
		return err
	}
	groupBy := nonEmpty(c.QueryParams()["group_by"])
	order, err := engine.ParseOrder(c.QueryParam("order"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	groups, err := engine.Aggregate(selected, groupBy...)
	if err != nil {
		return engineError(err)
	}
	if top := c.QueryParam("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "top must be a positive integer")
		}
		groups = engine.TopN(groups, n)
	}
	groups = engine.Sort(groups, order)

	return c.JSON(http.StatusOK, models.Aggregation{
		GroupBy: groupBy,
		Rows:    selected.Len(),
		Groups:  toGroupCounts(groups),
	})
}

// ListCharts returns the chart catalog, optionally for one tab.
func (h *Handler) ListCharts(c echo.Context) error {
	tab := c.QueryParam("tab")
	out := make([]models.ChartInfo, 0, len(dashboard.Catalog))
	for _, ch := range dashboard.Catalog {
		if tab != "" && ch.Tab != tab {
			continue
		}
		out = append(out, chartInfo(ch))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetChart(c echo.Context) error {
	ch, ok := dashboard.Lookup(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown chart")
	}
	full, selected, err := h.tables(c)
	if err != nil {
		return err
	}
	groups, err := ch.Compute(full, selected)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, models.ChartData{
		ChartInfo: chartInfo(ch),
		Groups:    toGroupCounts(groups),
	})
}
