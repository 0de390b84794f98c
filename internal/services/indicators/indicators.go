// Package indicators computes the technical indicators injected into agent
// prompts. It uses the cinar/indicator library for SMA, EMA and RSI over
// daily closing prices.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

// minHistory is the smallest close history the full indicator set needs.
const minHistory = 21

// DailySignals holds the latest indicator values for one symbol.
type DailySignals struct {
	// SMA5 and SMA20 are the simple moving averages the momentum preset
	// keys its crossover signal on.
	SMA5  decimal.Decimal
	SMA20 decimal.Decimal
	// EMA20 is the 20-day exponential moving average.
	EMA20 decimal.Decimal
	// RSI14 is the 14-day relative strength index, range 0-100.
	RSI14 decimal.Decimal
}

// CalculateSMA calculates the simple moving average for the given period.
func CalculateSMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points for SMA: need %d, got %d", period, len(closes))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(decimalsToFloat64(closes))))
	return float64ToDecimals(out), nil
}

// CalculateEMA calculates the exponential moving average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points for EMA: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	out := helper.ChanToSlice(ema.Compute(helper.SliceToChan(decimalsToFloat64(closes))))
	return float64ToDecimals(out), nil
}

// CalculateRSI calculates the relative strength index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	out := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(decimalsToFloat64(closes))))
	return float64ToDecimals(out), nil
}

// Latest computes the most recent signal set from a close history, oldest
// first. Returns an error when the history is too short for the full set.
func Latest(closes []decimal.Decimal) (*DailySignals, error) {
	if len(closes) < minHistory {
		return nil, fmt.Errorf("not enough data points: need at least %d, got %d", minHistory, len(closes))
	}

	sma5, err := CalculateSMA(closes, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate SMA5: %w", err)
	}
	sma20, err := CalculateSMA(closes, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate SMA20: %w", err)
	}
	ema20, err := CalculateEMA(closes, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMA20: %w", err)
	}
	rsi14, err := CalculateRSI(closes, 14)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate RSI14: %w", err)
	}

	return &DailySignals{
		SMA5:  sma5[len(sma5)-1],
		SMA20: sma20[len(sma20)-1],
		EMA20: ema20[len(ema20)-1],
		RSI14: rsi14[len(rsi14)-1],
	}, nil
}

func decimalsToFloat64(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i], _ = v.Float64()
	}
	return out
}

func float64ToDecimals(values []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}
