package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
)

// PriceHandler serves quotes and the realtime event stream
type PriceHandler struct {
	prices    PriceUsecase
	publisher domain.EventPublisher
	keepAlive time.Duration
	log       *zap.Logger
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(prices PriceUsecase, publisher domain.EventPublisher, log *zap.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, publisher: publisher, keepAlive: 25 * time.Second, log: log}
}

// GetPrices returns marked-up bid/ask quotes
// GET /api/prices
func (h *PriceHandler) GetPrices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	quotes, err := h.prices.Quotes(ctx)
	if err != nil {
		return HandleError(c, h.log, "Failed to get gold prices", err)
	}
	return SuccessResponse(c, quotes)
}

// Events streams ledger events as server-sent events until the client leaves
// GET /api/events
func (h *PriceHandler) Events(c echo.Context) error {
	ctx := c.Request().Context()

	events, closeSub, err := h.publisher.Subscribe(ctx)
	if err != nil {
		return HandleError(c, h.log, "Event stream unavailable", fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err))
	}
	defer closeSub()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, data); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
