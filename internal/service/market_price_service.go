package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"goldtrade/internal/domain"
)

// MarketPriceService fetches the Thai gold association price board
type MarketPriceService struct {
	httpClient *retryablehttp.Client
	url        string
	now        func() time.Time
}

// NewMarketPriceService creates a new MarketPriceService
func NewMarketPriceService(httpClient *retryablehttp.Client, url string) *MarketPriceService {
	return &MarketPriceService{
		httpClient: httpClient,
		url:        url,
		now:        time.Now,
	}
}

type priceSide struct {
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
}

type priceBoard struct {
	Status   string `json:"status"`
	Response struct {
		Date       string `json:"date"`
		UpdateTime string `json:"update_time"`
		Price      struct {
			Gold    priceSide `json:"gold"`
			GoldBar priceSide `json:"gold_bar"`
		} `json:"price"`
	} `json:"response"`
}

// FetchPrices fetches the current bar and ornament prices. The board's "buy"
// is what the shop pays (bid), "sell" what it charges (ask).
func (s *MarketPriceService) FetchPrices(ctx context.Context) (*domain.RawPrices, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch gold prices: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrUpstreamFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: price API status=%d, body=%s", domain.ErrUpstreamFailure, resp.StatusCode, string(body))
	}

	var board priceBoard
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", domain.ErrUpstreamFailure, err)
	}
	if board.Status != "success" {
		return nil, fmt.Errorf("%w: price API status %q", domain.ErrUpstreamFailure, board.Status)
	}

	bar, err := parseSide(board.Response.Price.GoldBar)
	if err != nil {
		return nil, fmt.Errorf("%w: gold bar: %v", domain.ErrUpstreamFailure, err)
	}
	ornament, err := parseSide(board.Response.Price.Gold)
	if err != nil {
		return nil, fmt.Errorf("%w: gold ornament: %v", domain.ErrUpstreamFailure, err)
	}

	return &domain.RawPrices{
		Prices: map[domain.GoldType]domain.PriceSide{
			domain.GoldBar:      bar,
			domain.GoldOrnament: ornament,
		},
		UpdatedAt: strings.TrimSpace(board.Response.Date + " " + board.Response.UpdateTime),
		FetchedAt: s.now(),
	}, nil
}

func parseSide(p priceSide) (domain.PriceSide, error) {
	bid, err := parseBaht(p.Buy)
	if err != nil {
		return domain.PriceSide{}, err
	}
	ask, err := parseBaht(p.Sell)
	if err != nil {
		return domain.PriceSide{}, err
	}
	return domain.PriceSide{Bid: bid, Ask: ask}, nil
}

// parseBaht reads prices like "40,650.00"
func parseBaht(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %q", s)
	}
	return v, nil
}
