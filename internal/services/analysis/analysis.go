// Package analysis computes post-run performance metrics from an agent's
// position ledger. All prices come from the calendar; the ledger itself never
// stores valuations.
package analysis

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/internal/domain"
	"github.com/aitrader/arena/internal/services/calendar"
)

// tradingDaysPerYear annualizes daily volatility and Sharpe.
const tradingDaysPerYear = 252

// Performance summarizes one agent's run.
type Performance struct {
	Agent        string
	Days         int
	InitialCash  decimal.Decimal
	FinalEquity  decimal.Decimal
	TotalReturn  decimal.Decimal // fraction, e.g. 0.12 for +12%
	MaxDrawdown  decimal.Decimal // fraction, always >= 0
	Volatility   float64         // annualized stddev of daily returns
	Sharpe       float64         // annualized, risk-free rate 0
	Trades       int             // committed buys and sells
	HoldDays     int
	WinRate      float64 // fraction of trading days with a positive return
	EquitySeries []decimal.Decimal
}

// Evaluate values every ledger snapshot and derives the run metrics. The
// calendar's latest date bounds all lookups, so the analysis sees closes the
// agents themselves never did.
func Evaluate(agent string, snapshots []domain.PortfolioSnapshot, cal *calendar.PriceCalendar) (*Performance, error) {
	if len(snapshots) == 0 {
		return nil, errors.Errorf("agent %s has no committed snapshots", agent)
	}

	asOf := cal.LatestTradableDate()
	perf := &Performance{
		Agent:       agent,
		Days:        len(snapshots) - 1,
		InitialCash: snapshots[0].Cash,
	}

	for _, snapshot := range snapshots {
		equity := snapshot.Equity(func(symbol string) (decimal.Decimal, bool) {
			// prefer the day's close; the final day only has an open
			if price, err := cal.PriceOn(symbol, snapshot.Date, asOf, domain.PriceClose); err == nil {
				return price, true
			}
			if price, err := cal.PriceOn(symbol, snapshot.Date, asOf, domain.PriceOpen); err == nil {
				return price, true
			}
			return decimal.Decimal{}, false
		})
		perf.EquitySeries = append(perf.EquitySeries, equity)

		if snapshot.LastAction != nil {
			if snapshot.LastAction.IsHold() {
				perf.HoldDays++
			} else {
				perf.Trades++
			}
		}
	}

	perf.FinalEquity = perf.EquitySeries[len(perf.EquitySeries)-1]
	if perf.InitialCash.IsPositive() {
		perf.TotalReturn = perf.FinalEquity.Sub(perf.InitialCash).Div(perf.InitialCash)
	}
	perf.MaxDrawdown = maxDrawdown(perf.EquitySeries)

	returns := dailyReturns(perf.EquitySeries)
	perf.Volatility, perf.Sharpe = volatilityAndSharpe(returns)
	perf.WinRate = winRate(returns)

	return perf, nil
}

func dailyReturns(equity []decimal.Decimal) []float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		prev, _ := equity[i-1].Float64()
		cur, _ := equity[i].Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, cur/prev-1)
	}
	return returns
}

func maxDrawdown(equity []decimal.Decimal) decimal.Decimal {
	if len(equity) == 0 {
		return decimal.Zero
	}
	peak := equity[0]
	worst := decimal.Zero
	for _, value := range equity {
		if value.GreaterThan(peak) {
			peak = value
		}
		if peak.IsPositive() {
			drawdown := peak.Sub(value).Div(peak)
			if drawdown.GreaterThan(worst) {
				worst = drawdown
			}
		}
	}
	return worst
}

func volatilityAndSharpe(returns []float64) (volatility, sharpe float64) {
	if len(returns) < 2 {
		return 0, 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	stddev := math.Sqrt(variance)

	annual := math.Sqrt(tradingDaysPerYear)
	volatility = stddev * annual
	if stddev > 0 {
		sharpe = mean / stddev * annual
	}
	return volatility, sharpe
}

func winRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}
