package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closesFromInts(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	closes := closesFromInts(10, 20, 30, 40, 50)
	sma, err := CalculateSMA(closes, 5)
	require.NoError(t, err)
	require.NotEmpty(t, sma)

	last, _ := sma[len(sma)-1].Float64()
	assert.InDelta(t, 30.0, last, 1e-9)
}

func TestCalculateSMANotEnoughData(t *testing.T) {
	_, err := CalculateSMA(closesFromInts(10, 20), 5)
	assert.Error(t, err)
}

func TestCalculateRSIRange(t *testing.T) {
	closes := make([]decimal.Decimal, 0, 30)
	price := int64(100)
	for i := 0; i < 30; i++ {
		// alternating moves keep RSI away from the extremes
		if i%2 == 0 {
			price += 3
		} else {
			price -= 2
		}
		closes = append(closes, decimal.NewFromInt(price))
	}

	rsi, err := CalculateRSI(closes, 14)
	require.NoError(t, err)
	require.NotEmpty(t, rsi)

	last, _ := rsi[len(rsi)-1].Float64()
	assert.Greater(t, last, 0.0)
	assert.Less(t, last, 100.0)
}

func TestLatestRequiresHistory(t *testing.T) {
	_, err := Latest(closesFromInts(1, 2, 3))
	assert.Error(t, err)
}

func TestLatestFullSet(t *testing.T) {
	closes := make([]decimal.Decimal, 0, 30)
	for i := int64(0); i < 30; i++ {
		closes = append(closes, decimal.NewFromInt(100+i))
	}

	signals, err := Latest(closes)
	require.NoError(t, err)

	// an ascending series: short average above long average
	assert.True(t, signals.SMA5.GreaterThan(signals.SMA20))
	assert.False(t, signals.EMA20.IsZero())
	assert.False(t, signals.RSI14.IsZero())
}
