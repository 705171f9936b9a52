package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"goldtrade/internal/utils"
)

// TradingSwitch reports whether admins have trading turned on
type TradingSwitch interface {
	TradingEnabled(ctx context.Context) (bool, error)
}

// TradingGuard rejects customer trades while trading is switched off or
// outside the trading hours
type TradingGuard struct {
	settings TradingSwitch
	window   *utils.ClockWindow
	log      *zap.Logger
	now      func() time.Time
}

// NewTradingGuard creates a guard; a nil window means trading all day
func NewTradingGuard(settings TradingSwitch, window *utils.ClockWindow, log *zap.Logger) *TradingGuard {
	return &TradingGuard{settings: settings, window: window, log: log, now: time.Now}
}

// Middleware returns the echo middleware
func (g *TradingGuard) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		enabled, err := g.settings.TradingEnabled(c.Request().Context())
		if err != nil {
			g.log.Error("failed to read trading switch", zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Trading status unavailable")
		}
		if !enabled {
			return echo.NewHTTPError(http.StatusForbidden, "Trading is currently disabled")
		}
		if !g.window.Contains(g.now()) {
			return echo.NewHTTPError(http.StatusForbidden, "Trading is closed outside trading hours")
		}
		return next(c)
	}
}
