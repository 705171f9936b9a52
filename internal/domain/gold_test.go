package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldtrade/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lot(amount, price string, at time.Time) *domain.Lot {
	return domain.NewLot(domain.CustomerHolder(uuid.New()), domain.GoldBar, d(amount), d(price), domain.LotReasonBuy, nil, at)
}

func TestCostBasis_Empty(t *testing.T) {
	basis := domain.Lots{}.CostBasis()
	assert.True(t, basis.TotalAmount.IsZero())
	assert.True(t, basis.TotalCost.IsZero())
	assert.True(t, basis.AverageCost.IsZero())
}

func TestCostBasis_IgnoresEmptyLots(t *testing.T) {
	now := time.Now()
	lots := domain.Lots{lot("2", "100", now), lot("0", "999", now)}

	basis := lots.CostBasis()
	assert.True(t, basis.TotalAmount.Equal(d("2")))
	assert.True(t, basis.AverageCost.Equal(d("100")))
}

func TestConsumeFIFO_AverageCostExample(t *testing.T) {
	assert := assert.New(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lots := domain.Lots{lot("5", "200", base.Add(time.Hour)), lot("5", "100", base)}

	before := lots.CostBasis()
	assert.True(before.AverageCost.Equal(d("150")), "average of (5,100) and (5,200)")

	c, err := lots.ConsumeFIFO(d("5"))
	require.NoError(t, err)

	require.Len(t, c.Takes, 1)
	assert.True(c.Takes[0].Price.Equal(d("100")), "oldest lot is consumed first")
	assert.True(c.Takes[0].Exhausted())
	assert.True(c.Cost.Equal(d("500")))

	after := c.Remaining.CostBasis()
	assert.True(after.TotalAmount.Equal(d("5")))
	assert.True(after.AverageCost.Equal(d("200")))

	// profit on a sale at 180/unit uses the pre-sale average
	proceeds := d("900")
	profit := proceeds.Sub(c.Amount.Mul(before.AverageCost))
	assert.True(profit.Equal(d("150")))
}

func TestConsumeFIFO_PartialLot(t *testing.T) {
	base := time.Now()
	first := lot("3", "100", base)
	second := lot("4", "120", base.Add(time.Minute))

	c, err := domain.Lots{first, second}.ConsumeFIFO(d("4.5"))
	require.NoError(t, err)

	require.Len(t, c.Takes, 2)
	assert.Equal(t, first.ID, c.Takes[0].LotID)
	assert.True(t, c.Takes[0].Exhausted())
	assert.Equal(t, second.ID, c.Takes[1].LotID)
	assert.True(t, c.Takes[1].Taken.Equal(d("1.5")))
	assert.True(t, c.Takes[1].Remaining.Equal(d("2.5")))
	assert.False(t, c.Takes[1].Exhausted())

	// 3*100 + 1.5*120
	assert.True(t, c.Cost.Equal(d("480")))
	assert.True(t, c.Remaining.Total().Equal(d("2.5")))

	// input lots are untouched
	assert.True(t, first.Amount.Equal(d("3")))
	assert.True(t, second.Amount.Equal(d("4")))
}

func TestConsumeFIFO_TieBreakBySequence(t *testing.T) {
	at := time.Now()
	a := lot("1", "100", at)
	a.Seq = 2
	b := lot("1", "200", at)
	b.Seq = 1

	c, err := domain.Lots{a, b}.ConsumeFIFO(d("1"))
	require.NoError(t, err)
	assert.Equal(t, b.ID, c.Takes[0].LotID)
}

func TestConsumeFIFO_NoOversell(t *testing.T) {
	lots := domain.Lots{lot("1", "100", time.Now()), lot("0.5", "100", time.Now())}

	_, err := lots.ConsumeFIFO(d("1.6"))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "available 1.5")
	assert.True(t, lots.Total().Equal(d("1.5")))
}

func TestConsumeFIFO_InvalidAmount(t *testing.T) {
	lots := domain.Lots{lot("1", "100", time.Now())}

	for _, amount := range []string{"0", "-1"} {
		_, err := lots.ConsumeFIFO(d(amount))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, amount)
	}
}

func TestConsumeFIFO_Conservation(t *testing.T) {
	base := time.Now()
	var lots domain.Lots
	bought := decimal.Zero
	sold := decimal.Zero

	steps := []struct {
		buy  string
		sell string
	}{
		{buy: "2.5"}, {buy: "1.25"}, {sell: "3"}, {buy: "4"}, {sell: "0.75"}, {sell: "1"},
	}
	for i, s := range steps {
		if s.buy != "" {
			lots = append(lots, lot(s.buy, "100", base.Add(time.Duration(i)*time.Second)))
			bought = bought.Add(d(s.buy))
			continue
		}
		c, err := lots.ConsumeFIFO(d(s.sell))
		require.NoError(t, err)
		lots = c.Remaining
		sold = sold.Add(d(s.sell))
	}

	assert.True(t, lots.Total().Equal(bought.Sub(sold)), "remaining %s", lots.Total())
}

func TestNewStockSummary(t *testing.T) {
	s := domain.NewStockSummary(domain.GoldOrnament, d("10"), d("12.5"))
	assert.True(t, s.Available.Equal(d("-2.5")))
}

func TestHolder(t *testing.T) {
	assert.True(t, domain.InventoryHolder().IsInventory())
	assert.Equal(t, "inventory", domain.InventoryHolder().String())

	id := uuid.New()
	h := domain.CustomerHolder(id)
	assert.False(t, h.IsInventory())
	assert.Equal(t, id.String(), h.String())
}
