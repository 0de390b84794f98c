package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrader/arena/internal/domain"
	"github.com/aitrader/arena/internal/services/calendar"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func testCalendar(t *testing.T) *calendar.PriceCalendar {
	t.Helper()
	bars := []domain.DailyBar{
		{Symbol: "AAPL", Date: day(2), Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(100), HasClose: true},
		{Symbol: "AAPL", Date: day(3), Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(110), HasClose: true},
		{Symbol: "AAPL", Date: day(6), Open: decimal.NewFromInt(110), Close: decimal.NewFromInt(99), HasClose: true},
		{Symbol: "AAPL", Date: day(7), Open: decimal.NewFromInt(99), Close: decimal.NewFromInt(104), HasClose: true},
	}
	cal, err := calendar.New(bars)
	require.NoError(t, err)
	return cal
}

func snapshot(d int, seq int64, cash decimal.Decimal, shares int64, action domain.TradeAction) domain.PortfolioSnapshot {
	s := domain.PortfolioSnapshot{
		Date:       day(d),
		SequenceID: seq,
		Cash:       cash,
		Holdings:   map[string]int64{},
	}
	if shares > 0 {
		s.Holdings["AAPL"] = shares
	}
	if seq > 1 {
		s.LastAction = &action
	}
	return s
}

func TestEvaluateBuyAndHold(t *testing.T) {
	cash := decimal.NewFromInt(10000)
	// buy 10 AAPL at Jan 3's open of 100, then hold
	snapshots := []domain.PortfolioSnapshot{
		snapshot(2, 1, cash, 0, domain.Hold()),
		snapshot(3, 2, decimal.NewFromInt(9000), 10, domain.TradeAction{Action: domain.ActionBuy, Symbol: "AAPL", Amount: 10}),
		snapshot(6, 3, decimal.NewFromInt(9000), 10, domain.Hold()),
		snapshot(7, 4, decimal.NewFromInt(9000), 10, domain.Hold()),
	}

	perf, err := Evaluate("tester", snapshots, testCalendar(t))
	require.NoError(t, err)

	assert.Equal(t, 3, perf.Days)
	assert.Equal(t, 1, perf.Trades)
	assert.Equal(t, 2, perf.HoldDays)

	// Jan 7 is the latest day: its close is withheld, so the open of 99 is used
	require.Len(t, perf.EquitySeries, 4)
	assert.True(t, perf.EquitySeries[0].Equal(decimal.NewFromInt(10000)))
	assert.True(t, perf.EquitySeries[1].Equal(decimal.NewFromInt(10100)), "got %s", perf.EquitySeries[1])
	assert.True(t, perf.EquitySeries[2].Equal(decimal.NewFromInt(9990)), "got %s", perf.EquitySeries[2])
	assert.True(t, perf.EquitySeries[3].Equal(decimal.NewFromInt(9990)), "got %s", perf.EquitySeries[3])

	assert.True(t, perf.TotalReturn.Equal(decimal.RequireFromString("-0.001")), "got %s", perf.TotalReturn)
	// peak 10100, trough 9990
	assert.True(t, perf.MaxDrawdown.GreaterThan(decimal.Zero))
	assert.InDelta(t, 1.0/3.0, perf.WinRate, 1e-9)
}

func TestEvaluateEmptyLedger(t *testing.T) {
	_, err := Evaluate("tester", nil, testCalendar(t))
	assert.Error(t, err)
}

func TestMaxDrawdownMonotonicSeries(t *testing.T) {
	equity := []decimal.Decimal{
		decimal.NewFromInt(100),
		decimal.NewFromInt(110),
		decimal.NewFromInt(120),
	}
	assert.True(t, maxDrawdown(equity).IsZero())
}
