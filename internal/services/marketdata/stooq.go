package marketdata

import (
	"context"
	"encoding/csv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aitrader/arena/internal/domain"
)

const (
	stooqBaseURL  = "https://stooq.com"
	stooqTimeout  = 30 * time.Second
	stooqDateForm = "20060102"
)

// StooqFetcher downloads daily bars from the Stooq CSV endpoint. Stooq keys
// US equities with a ".us" suffix, lower-cased.
type StooqFetcher struct {
	client *resty.Client
	logger *zap.Logger
}

// NewStooqFetcher creates a fetcher with sane timeouts.
func NewStooqFetcher(logger *zap.Logger) *StooqFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(stooqBaseURL).
		SetTimeout(stooqTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)
	return &StooqFetcher{client: client, logger: logger}
}

// FetchDaily downloads the daily series of each symbol for the date range,
// inclusive on both ends.
func (f *StooqFetcher) FetchDaily(ctx context.Context, symbols []string, from, to time.Time) ([]domain.DailyBar, error) {
	var bars []domain.DailyBar
	for _, symbol := range symbols {
		series, err := f.fetchSymbol(ctx, symbol, from, to)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s", symbol)
		}
		f.logger.Info("fetched daily bars",
			zap.String("symbol", symbol),
			zap.Int("bars", len(series)))
		bars = append(bars, series...)
	}
	return bars, nil
}

func (f *StooqFetcher) fetchSymbol(ctx context.Context, symbol string, from, to time.Time) ([]domain.DailyBar, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"s":  strings.ToLower(symbol) + ".us",
			"d1": from.Format(stooqDateForm),
			"d2": to.Format(stooqDateForm),
			"i":  "d",
		}).
		Get("/q/d/l/")
	if err != nil {
		return nil, errors.Wrap(err, "stooq request failed")
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("stooq returned status %d", resp.StatusCode())
	}

	return parseStooqCSV(symbol, resp.String())
}

// parseStooqCSV decodes the "Date,Open,High,Low,Close,Volume" payload.
func parseStooqCSV(symbol, payload string) ([]domain.DailyBar, error) {
	reader := csv.NewReader(strings.NewReader(payload))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse stooq csv")
	}
	if len(rows) < 2 {
		return nil, errors.Errorf("no data rows for %s", symbol)
	}

	var bars []domain.DailyBar
	for _, row := range rows[1:] {
		if len(row) < 5 {
			continue
		}
		date, err := time.Parse(domain.DateLayout, row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid date %q", row[0])
		}
		open, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid open %q", row[1])
		}
		cl, err := decimal.NewFromString(row[4])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid close %q", row[4])
		}
		bars = append(bars, domain.DailyBar{
			Symbol:   symbol,
			Date:     date,
			Open:     open,
			Close:    cl,
			HasClose: true,
		})
	}
	return bars, nil
}
