package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldtrade/internal/domain"
)

func TestMarkup_Apply(t *testing.T) {
	raw := domain.PriceSide{Bid: d("40000"), Ask: d("40100")}

	pct := domain.Markup{Mode: domain.MarkupPercent, Bid: d("1"), Ask: d("0.5")}.Apply(raw)
	assert.True(t, pct.Bid.Equal(d("39600")), pct.Bid.String())
	assert.True(t, pct.Ask.Equal(d("40300.5")), pct.Ask.String())

	fixed := domain.Markup{Mode: domain.MarkupFixed, Bid: d("150"), Ask: d("50")}.Apply(raw)
	assert.True(t, fixed.Bid.Equal(d("39850")))
	assert.True(t, fixed.Ask.Equal(d("40150")))

	none := domain.Markup{}.Apply(raw)
	assert.Equal(t, raw, none)
}

func TestMarkupSettings_Validate(t *testing.T) {
	ok := domain.MarkupSettings{domain.GoldBar: {Mode: domain.MarkupFixed, Bid: d("100"), Ask: d("100")}}
	require.NoError(t, ok.Validate())

	bad := []domain.MarkupSettings{
		{"silver": {Mode: domain.MarkupFixed}},
		{domain.GoldBar: {Mode: "ratio"}},
		{domain.GoldBar: {Mode: domain.MarkupFixed, Bid: d("-1")}},
		{domain.GoldBar: {Mode: domain.MarkupPercent, Ask: d("100")}},
	}
	for _, s := range bad {
		assert.ErrorIs(t, s.Validate(), domain.ErrInvalidInput)
	}
}

func TestRawPrices_Quotes(t *testing.T) {
	at := time.Now()
	raw := &domain.RawPrices{
		Prices: map[domain.GoldType]domain.PriceSide{
			domain.GoldOrnament: {Bid: d("39000"), Ask: d("41000")},
			domain.GoldBar:      {Bid: d("40000"), Ask: d("40100")},
		},
		FetchedAt: at,
	}
	settings := domain.MarkupSettings{domain.GoldBar: {Mode: domain.MarkupFixed, Bid: d("100"), Ask: d("100")}}

	quotes := raw.Quotes(settings)
	require.Len(t, quotes, 2)
	assert.Equal(t, domain.GoldBar, quotes[0].GoldType)
	assert.True(t, quotes[0].Bid.Equal(d("39900")))
	assert.True(t, quotes[0].RawAsk.Equal(d("40100")))
	assert.Equal(t, domain.GoldOrnament, quotes[1].GoldType)
	assert.True(t, quotes[1].Ask.Equal(d("41000")), "no markup configured")
	assert.Equal(t, at, quotes[1].AsOf)
}
