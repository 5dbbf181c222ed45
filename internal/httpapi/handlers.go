package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"openbook-candles/internal/candles"
	"openbook-candles/internal/database"
	"openbook-candles/internal/market"
	"openbook-candles/internal/store"

	"github.com/labstack/echo/v4"
)

type handlers struct {
	db         *database.DB
	candles    *store.Candles
	markets    map[string]*market.Descriptor
	marketList []*market.Descriptor
}

// health mirrors controllers/health_controller.go's db.Health(ctx) check.
func (h *handlers) health(c echo.Context) error {
	if err := h.db.Health(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// listMarkets returns every market the ingestion pipeline is tracking.
func (h *handlers) listMarkets(c echo.Context) error {
	out := make([]map[string]any, 0, len(h.marketList))
	for _, m := range h.marketList {
		out = append(out, map[string]any{
			"name":           m.Name,
			"address":        m.Address,
			"base_decimals":  m.BaseDecimals,
			"quote_decimals": m.QuoteDecimals,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) resolveMarket(c echo.Context) (*market.Descriptor, error) {
	name := c.Param("market")
	for _, m := range h.marketList {
		if m.Name == name || m.Address == name {
			return m, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusNotFound, "unknown market: "+name)
}

func parseResolution(c echo.Context) candles.Resolution {
	r := candles.Resolution(c.QueryParam("resolution"))
	if r == "" || !r.Valid() {
		return candles.R1h
	}
	return r
}

// getCandles returns the most recent page of candles for a market,
// grounded on controllers/candle_controller.go's GetCandles.
func (h *handlers) getCandles(c echo.Context) error {
	m, err := h.resolveMarket(c)
	if err != nil {
		return err
	}

	limit := 100
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 1500 {
		limit = l
	}

	resolution := parseResolution(c)

	rows, err := h.candles.Recent(c.Request().Context(), m.Address, resolution, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"market":     m.Name,
		"resolution": string(resolution),
		"candles":    rows,
	})
}

// getLatestCandle returns the newest completed candle for a market.
func (h *handlers) getLatestCandle(c echo.Context) error {
	m, err := h.resolveMarket(c)
	if err != nil {
		return err
	}

	resolution := parseResolution(c)

	candle, err := h.candles.LatestCandle(c.Request().Context(), m.Address, resolution)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"market":     m.Name,
		"resolution": string(resolution),
		"candle":     candle,
	})
}

// getCandleRange returns candles within an explicit [start_time, end_time)
// window, grounded on controllers/candle_controller.go's GetCandleRange.
func (h *handlers) getCandleRange(c echo.Context) error {
	m, err := h.resolveMarket(c)
	if err != nil {
		return err
	}

	resolution := parseResolution(c)

	startStr := c.QueryParam("start_time")
	endStr := c.QueryParam("end_time")
	if startStr == "" || endStr == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start_time and end_time are required, RFC3339"})
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid start_time, use RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid end_time, use RFC3339"})
	}

	limit := 1500
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 1500 {
		limit = l
	}

	rows, err := h.candles.Range(c.Request().Context(), m.Address, resolution, start, end, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"market":     m.Name,
		"resolution": string(resolution),
		"start_time": start,
		"end_time":   end,
		"candles":    rows,
	})
}
