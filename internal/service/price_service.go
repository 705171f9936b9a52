package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goldtrade/internal/domain"
	"goldtrade/internal/metrics"
)

// refreshTimeout bounds one shared upstream refresh
const refreshTimeout = 20 * time.Second

// PriceService turns the raw feed into customer quotes with the configured
// markups, caching the latest result
type PriceService struct {
	feed     domain.GoldPriceFeed
	cache    domain.QuoteCache
	settings domain.SettingsRepository
	metrics  *metrics.LedgerMetrics
	log      *zap.Logger
	group    singleflight.Group
}

// NewPriceService creates a new PriceService
func NewPriceService(feed domain.GoldPriceFeed, cache domain.QuoteCache, settings domain.SettingsRepository, m *metrics.LedgerMetrics, log *zap.Logger) *PriceService {
	return &PriceService{
		feed:     feed,
		cache:    cache,
		settings: settings,
		metrics:  m,
		log:      log.Named("price"),
	}
}

// Quotes returns the cached quotes, refreshing on a miss
func (s *PriceService) Quotes(ctx context.Context) ([]domain.Quote, error) {
	quotes, err := s.cache.Get(ctx)
	if err == nil {
		return quotes, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("quote cache read failed", zap.Error(err))
	}
	return s.Refresh(ctx)
}

// Quote returns the quote of one gold type
func (s *PriceService) Quote(ctx context.Context, goldType domain.GoldType) (*domain.Quote, error) {
	quotes, err := s.Quotes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		if quotes[i].GoldType == goldType {
			return &quotes[i], nil
		}
	}
	return nil, fmt.Errorf("quote for %s: %w", goldType, domain.ErrNotFound)
}

// Refresh fetches the feed, applies the markups and updates the cache.
// Concurrent callers share one upstream request, which runs detached from
// any single caller's cancellation. A caller whose ctx ends stops waiting
// without aborting the fetch for the others.
func (s *PriceService) Refresh(ctx context.Context) ([]domain.Quote, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Quote), nil
	}
}

func (s *PriceService) refresh(ctx context.Context) ([]domain.Quote, error) {
	raw, err := s.feed.FetchPrices(ctx)
	s.metrics.ObservePriceRefresh(err)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh prices: %w", err)
	}

	markup, err := s.settings.Markup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load markup: %w", err)
	}

	quotes := raw.Quotes(markup)
	if err := s.cache.Set(ctx, quotes); err != nil {
		s.log.Warn("quote cache write failed", zap.Error(err))
	}
	return quotes, nil
}

// Markup returns the current markup settings
func (s *PriceService) Markup(ctx context.Context) (domain.MarkupSettings, error) {
	return s.settings.Markup(ctx)
}

// UpdateMarkup stores new markups and re-prices the cached quotes
func (s *PriceService) UpdateMarkup(ctx context.Context, markup domain.MarkupSettings) error {
	if err := markup.Validate(); err != nil {
		return err
	}
	if err := s.settings.SetMarkup(ctx, markup); err != nil {
		return fmt.Errorf("failed to save markup: %w", err)
	}
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Warn("re-pricing after markup change failed", zap.Error(err))
	}
	return nil
}
