// Package marketdata loads the daily price dataset the arena runs against:
// either from a local JSONL file or fetched from the Stooq daily CSV API.
package marketdata

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/internal/domain"
)

// barRecord is the on-disk JSONL layout of one daily bar.
type barRecord struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
	Open   string `json:"open"`
	Close  string `json:"close,omitempty"`
}

// LoadJSONL reads daily bars from a JSONL file. The close of the dataset's
// most recent date is withheld even when the file contains it, so a same-day
// backtest cannot observe a price that would not be known yet.
func LoadJSONL(path string) ([]domain.DailyBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open prices file")
	}
	defer f.Close()

	var bars []domain.DailyBar
	var latest time.Time

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record barRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, errors.Wrapf(err, "decode bar at line %d", line)
		}
		bar, err := fromBarRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "bar at line %d", line)
		}
		bars = append(bars, bar)
		if bar.Date.After(latest) {
			latest = bar.Date
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read prices file")
	}
	if len(bars) == 0 {
		return nil, errors.Errorf("prices file %s holds no bars", path)
	}

	for i := range bars {
		if bars[i].Date.Equal(latest) {
			bars[i].HasClose = false
			bars[i].Close = decimal.Decimal{}
		}
	}

	return bars, nil
}

// WriteJSONL writes bars to a JSONL prices file, replacing it atomically.
func WriteJSONL(path string, bars []domain.DailyBar) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create prices dir")
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "create prices file")
	}

	w := bufio.NewWriter(f)
	for _, bar := range bars {
		record := barRecord{
			Symbol: bar.Symbol,
			Date:   bar.Date.Format(domain.DateLayout),
			Open:   bar.Open.String(),
		}
		if bar.HasClose {
			record.Close = bar.Close.String()
		}
		payload, err := json.Marshal(record)
		if err != nil {
			f.Close()
			return errors.Wrap(err, "marshal bar")
		}
		if _, err := w.Write(append(payload, '\n')); err != nil {
			f.Close()
			return errors.Wrap(err, "write bar")
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush prices file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close prices file")
	}
	return errors.Wrap(os.Rename(tmp, path), "replace prices file")
}

func fromBarRecord(record barRecord) (domain.DailyBar, error) {
	date, err := time.Parse(domain.DateLayout, record.Date)
	if err != nil {
		return domain.DailyBar{}, errors.Wrapf(err, "invalid date %q", record.Date)
	}
	open, err := decimal.NewFromString(record.Open)
	if err != nil {
		return domain.DailyBar{}, errors.Wrapf(err, "invalid open price %q", record.Open)
	}

	bar := domain.DailyBar{
		Symbol: record.Symbol,
		Date:   date,
		Open:   open,
	}
	if record.Close != "" {
		cl, err := decimal.NewFromString(record.Close)
		if err != nil {
			return domain.DailyBar{}, errors.Wrapf(err, "invalid close price %q", record.Close)
		}
		bar.Close = cl
		bar.HasClose = true
	}
	return bar, nil
}
