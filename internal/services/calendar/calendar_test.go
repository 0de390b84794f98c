package calendar

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrader/arena/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func testBars() []domain.DailyBar {
	price := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }
	return []domain.DailyBar{
		// Thu Jan 2, Fri Jan 3, Mon Jan 6; the weekend has no bars.
		{Symbol: "AAPL", Date: day(2), Open: price(100), Close: price(101), HasClose: true},
		{Symbol: "AAPL", Date: day(3), Open: price(102), Close: price(103), HasClose: true},
		{Symbol: "AAPL", Date: day(6), Open: price(105)},
		{Symbol: "MSFT", Date: day(2), Open: price(300), Close: price(301), HasClose: true},
		{Symbol: "MSFT", Date: day(3), Open: price(302), Close: price(299), HasClose: true},
		{Symbol: "MSFT", Date: day(6), Open: price(305)},
	}
}

func TestPriceOn(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	open, err := c.PriceOn("AAPL", day(2), day(2), domain.PriceOpen)
	require.NoError(t, err)
	assert.True(t, open.Equal(decimal.NewFromInt(100)))

	// close of an earlier day is known
	cl, err := c.PriceOn("AAPL", day(2), day(6), domain.PriceClose)
	require.NoError(t, err)
	assert.True(t, cl.Equal(decimal.NewFromInt(101)))
}

func TestLookAheadGuard(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	// the dataset physically contains Jan 6 but asOf Jan 3 must hide it
	_, err = c.PriceOn("AAPL", day(6), day(3), domain.PriceOpen)
	assert.ErrorIs(t, err, ErrFutureDate)

	_, err = c.PricesOn(day(6), day(3), domain.PriceOpen)
	assert.ErrorIs(t, err, ErrFutureDate)
}

func TestFinalCloseWithheld(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	assert.Equal(t, day(6), c.LatestTradableDate())

	_, err = c.PriceOn("AAPL", day(6), day(6), domain.PriceClose)
	assert.ErrorIs(t, err, ErrNotFound)

	// open on the final day is still available
	open, err := c.PriceOn("AAPL", day(6), day(6), domain.PriceOpen)
	require.NoError(t, err)
	assert.True(t, open.Equal(decimal.NewFromInt(105)))
}

func TestNotFound(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	// Saturday has no record
	_, err = c.PriceOn("AAPL", day(4), day(6), domain.PriceOpen)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.PriceOn("TSLA", day(2), day(6), domain.PriceOpen)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsTradingDay(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	assert.True(t, c.IsTradingDay(day(3)))
	assert.False(t, c.IsTradingDay(day(4)))
	assert.False(t, c.IsTradingDay(day(5)))
	assert.True(t, c.IsTradingDay(day(6)))
}

func TestPricesOnSkipsMissing(t *testing.T) {
	bars := append(testBars(), domain.DailyBar{
		Symbol: "NVDA", Date: day(3), Open: decimal.NewFromInt(500), Close: decimal.NewFromInt(510), HasClose: true,
	})
	c, err := New(bars)
	require.NoError(t, err)

	prices, err := c.PricesOn(day(2), day(6), domain.PriceOpen)
	require.NoError(t, err)
	assert.Len(t, prices, 2) // NVDA has no bar on Jan 2
	assert.Contains(t, prices, "AAPL")
	assert.Contains(t, prices, "MSFT")
}

func TestCloseHistory(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	// Jan 6 close is withheld, so history as of Jan 6 holds Jan 2 and Jan 3
	closes := c.CloseHistory("AAPL", day(6), 10)
	require.Len(t, closes, 2)
	assert.True(t, closes[0].Equal(decimal.NewFromInt(101)))
	assert.True(t, closes[1].Equal(decimal.NewFromInt(103)))

	limited := c.CloseHistory("AAPL", day(6), 1)
	require.Len(t, limited, 1)
	assert.True(t, limited[0].Equal(decimal.NewFromInt(103)))
}

func TestPrevTradingDay(t *testing.T) {
	c, err := New(testBars())
	require.NoError(t, err)

	prev, ok := c.PrevTradingDay(day(6))
	require.True(t, ok)
	assert.Equal(t, day(3), prev)

	// Monday's previous trading day skips the weekend
	prev, ok = c.PrevTradingDay(day(5))
	require.True(t, ok)
	assert.Equal(t, day(3), prev)

	_, ok = c.PrevTradingDay(day(2))
	assert.False(t, ok)
}

func TestEmptyDataset(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
