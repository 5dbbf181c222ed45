// Package httpapi is the read-only HTTP surface over the persistence
// contracts — the "external collaborator" spec.md §1 places out of core
// scope, kept here as the teacher's own reason for existing
// (routes/routes.go, controllers/candle_controller.go) repurposed onto
// this domain's data shape instead of Binance klines.
package httpapi

import (
	"openbook-candles/internal/database"
	"openbook-candles/internal/market"
	"openbook-candles/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// NewServer builds an *echo.Echo wired with the candle read routes,
// grounded on routes/routes.go's route-group shape.
func NewServer(db *database.DB, candleStore *store.Candles, markets []*market.Descriptor, rps, burst int) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(rateLimitMiddleware(rps, burst))

	h := &handlers{db: db, candles: candleStore, markets: market.ByName(markets), marketList: markets}

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.health)
	v1.GET("/markets", h.listMarkets)

	candles := v1.Group("/candles")
	candles.GET("/:market", h.getCandles)
	candles.GET("/:market/latest", h.getLatestCandle)
	candles.GET("/:market/range", h.getCandleRange)

	return e
}

// rateLimitMiddleware bounds inbound request rate, grounded on the
// teacher's internal/middleware/ratelimit.go use of golang.org/x/time/rate,
// adapted from a per-client-IP limiter map to one process-wide limiter
// since this surface has no per-tenant API keys.
func rateLimitMiddleware(rps, burst int) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(429, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
