package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrader/arena/internal/domain"
)

func TestLoadJSONLWithholdsFinalClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.jsonl")
	content := `{"symbol":"AAPL","date":"2025-01-02","open":"100.0","close":"101.0"}
{"symbol":"AAPL","date":"2025-01-03","open":"102.0","close":"103.0"}
{"symbol":"MSFT","date":"2025-01-03","open":"302.0","close":"299.0"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	bars, err := LoadJSONL(path)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	byKey := make(map[string]domain.DailyBar)
	for _, bar := range bars {
		byKey[bar.Symbol+bar.Date.Format(domain.DateLayout)] = bar
	}

	assert.True(t, byKey["AAPL2025-01-02"].HasClose)
	// Jan 3 is the latest date in the dataset; every close on it is withheld
	assert.False(t, byKey["AAPL2025-01-03"].HasClose)
	assert.False(t, byKey["MSFT2025-01-03"].HasClose)
}

func TestLoadJSONLRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"symbol":"AAPL","date":"bad","open":"1"}`+"\n"), 0o644))

	_, err := LoadJSONL(path)
	assert.Error(t, err)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.jsonl")
	bars := []domain.DailyBar{
		{Symbol: "NVDA", Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Open: decimal.NewFromInt(500), Close: decimal.NewFromInt(510), HasClose: true},
		{Symbol: "NVDA", Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), Open: decimal.NewFromInt(512), Close: decimal.NewFromInt(515), HasClose: true},
	}
	require.NoError(t, WriteJSONL(path, bars))

	loaded, err := LoadJSONL(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.True(t, loaded[0].Open.Equal(decimal.NewFromInt(500)))
	assert.True(t, loaded[0].HasClose)
	assert.False(t, loaded[1].HasClose)
}

func TestParseStooqCSV(t *testing.T) {
	payload := "Date,Open,High,Low,Close,Volume\n" +
		"2025-01-02,100.5,103,99,101.25,1200000\n" +
		"2025-01-03,101.5,104,100,103.75,900000\n"

	bars, err := parseStooqCSV("AAPL", payload)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.True(t, bars[0].Open.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, bars[1].Close.Equal(decimal.RequireFromString("103.75")))
	assert.True(t, bars[1].HasClose)
}

func TestParseStooqCSVNoRows(t *testing.T) {
	_, err := parseStooqCSV("AAPL", "Date,Open,High,Low,Close,Volume\n")
	assert.Error(t, err)
}
