package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCloneIsDeep(t *testing.T) {
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	snapshot := NewInitialSnapshot(date, decimal.NewFromFloat(10000))
	snapshot.Holdings["AAPL"] = 10

	clone := snapshot.Clone()
	clone.Holdings["AAPL"] = 99

	assert.EqualValues(t, 10, snapshot.Shares("AAPL"))
	assert.EqualValues(t, 99, clone.Shares("AAPL"))
}

func TestSnapshotValidate(t *testing.T) {
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	valid := NewInitialSnapshot(date, decimal.NewFromFloat(10000))
	require.NoError(t, valid.Validate())

	negativeCash := valid.Clone()
	negativeCash.Cash = decimal.NewFromFloat(-1)
	assert.Error(t, negativeCash.Validate())

	short := valid.Clone()
	short.Holdings["AAPL"] = -5
	assert.Error(t, short.Validate())

	badSeq := valid.Clone()
	badSeq.SequenceID = 0
	assert.Error(t, badSeq.Validate())
}

func TestSnapshotEquity(t *testing.T) {
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	snapshot := NewInitialSnapshot(date, decimal.NewFromFloat(1000))
	snapshot.Holdings["AAPL"] = 10
	snapshot.Holdings["MSFT"] = 2

	prices := map[string]decimal.Decimal{
		"AAPL": decimal.NewFromFloat(100),
	}
	equity := snapshot.Equity(func(symbol string) (decimal.Decimal, bool) {
		p, ok := prices[symbol]
		return p, ok
	})

	// MSFT has no price and is valued at zero
	assert.True(t, equity.Equal(decimal.NewFromFloat(2000)), "got %s", equity)
}
