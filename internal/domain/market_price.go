package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GoldPriceFeed fetches raw spot prices from the external feed
type GoldPriceFeed interface {
	FetchPrices(ctx context.Context) (*RawPrices, error)
}

// PriceSide is a bid/ask pair. Bid is what the shop pays a customer,
// Ask is what a customer pays the shop.
type PriceSide struct {
	Bid decimal.Decimal `json:"bid"`
	Ask decimal.Decimal `json:"ask"`
}

// RawPrices is one snapshot of the feed
type RawPrices struct {
	Prices    map[GoldType]PriceSide
	UpdatedAt string
	FetchedAt time.Time
}

// MarkupMode constants
const (
	MarkupPercent = "percent"
	MarkupFixed   = "fixed"
)

// Markup adjusts one gold type's raw price. Bid is lowered and Ask raised.
type Markup struct {
	Mode string          `json:"mode"`
	Bid  decimal.Decimal `json:"bid"`
	Ask  decimal.Decimal `json:"ask"`
}

// MarkupSettings holds the markup of every gold type
type MarkupSettings map[GoldType]Markup

var hundred = decimal.NewFromInt(100)

// Apply returns the adjusted price, rounded to satang
func (m Markup) Apply(p PriceSide) PriceSide {
	switch m.Mode {
	case MarkupPercent:
		return PriceSide{
			Bid: p.Bid.Mul(hundred.Sub(m.Bid)).Div(hundred).Round(2),
			Ask: p.Ask.Mul(hundred.Add(m.Ask)).Div(hundred).Round(2),
		}
	case MarkupFixed:
		return PriceSide{
			Bid: p.Bid.Sub(m.Bid).Round(2),
			Ask: p.Ask.Add(m.Ask).Round(2),
		}
	default:
		return p
	}
}

// Validate checks every entry of the settings
func (s MarkupSettings) Validate() error {
	for t, m := range s {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown gold type %q", ErrInvalidInput, t)
		}
		if m.Mode != MarkupPercent && m.Mode != MarkupFixed {
			return fmt.Errorf("%w: unknown markup mode %q", ErrInvalidInput, m.Mode)
		}
		if m.Bid.IsNegative() || m.Ask.IsNegative() {
			return fmt.Errorf("%w: markup must not be negative", ErrInvalidInput)
		}
		if m.Mode == MarkupPercent && (m.Bid.GreaterThanOrEqual(hundred) || m.Ask.GreaterThanOrEqual(hundred)) {
			return fmt.Errorf("%w: percent markup must be below 100", ErrInvalidInput)
		}
	}
	return nil
}

// Quote is the customer-facing price of one gold type
type Quote struct {
	GoldType GoldType        `json:"gold_type"`
	RawBid   decimal.Decimal `json:"raw_bid"`
	RawAsk   decimal.Decimal `json:"raw_ask"`
	Bid      decimal.Decimal `json:"bid"`
	Ask      decimal.Decimal `json:"ask"`
	AsOf     time.Time       `json:"as_of"`
}

// Quotes applies the markups to every gold type present in the snapshot
func (r *RawPrices) Quotes(settings MarkupSettings) []Quote {
	quotes := make([]Quote, 0, len(r.Prices))
	for _, t := range GoldTypes {
		raw, ok := r.Prices[t]
		if !ok {
			continue
		}
		adjusted := settings[t].Apply(raw)
		quotes = append(quotes, Quote{
			GoldType: t,
			RawBid:   raw.Bid,
			RawAsk:   raw.Ask,
			Bid:      adjusted.Bid,
			Ask:      adjusted.Ask,
			AsOf:     r.FetchedAt,
		})
	}
	return quotes
}
