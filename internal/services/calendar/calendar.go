// Package calendar provides a read-only view over per-symbol daily price
// series with a structural guard against look-ahead bias.
package calendar

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/internal/domain"
)

var (
	// ErrFutureDate is returned when a lookup asks for a date later than
	// the simulated "today" it was given.
	ErrFutureDate = errors.New("price date is beyond the simulated today")
	// ErrNotFound is returned when no price record exists for the
	// requested symbol, date and kind.
	ErrNotFound = errors.New("no price record found")
)

// PriceCalendar answers "price of symbol X on date D" for a fixed, immutable
// dataset of daily bars. Every lookup carries an explicit asOf date; asking
// for anything after it fails with ErrFutureDate even if the dataset
// physically contains later rows. The final day's close is withheld because
// it is not yet known in a same-day backtest.
type PriceCalendar struct {
	bars    map[string]map[string]domain.DailyBar
	days    []time.Time
	daySet  map[string]struct{}
	latest  time.Time
	symbols []string
}

// New builds a calendar from loaded daily bars.
func New(bars []domain.DailyBar) (*PriceCalendar, error) {
	if len(bars) == 0 {
		return nil, errors.New("price dataset is empty")
	}

	c := &PriceCalendar{
		bars:   make(map[string]map[string]domain.DailyBar),
		daySet: make(map[string]struct{}),
	}
	for _, bar := range bars {
		if bar.Symbol == "" {
			return nil, errors.New("bar without symbol in price dataset")
		}
		day := dateKey(bar.Date)
		series, ok := c.bars[bar.Symbol]
		if !ok {
			series = make(map[string]domain.DailyBar)
			c.bars[bar.Symbol] = series
			c.symbols = append(c.symbols, bar.Symbol)
		}
		series[day] = bar

		if _, seen := c.daySet[day]; !seen {
			c.daySet[day] = struct{}{}
			c.days = append(c.days, truncate(bar.Date))
		}
		if truncate(bar.Date).After(c.latest) {
			c.latest = truncate(bar.Date)
		}
	}

	sort.Slice(c.days, func(i, j int) bool { return c.days[i].Before(c.days[j]) })
	sort.Strings(c.symbols)

	return c, nil
}

// PriceOn returns the requested price. The asOf argument is the simulated
// "today" of the caller; it bounds every lookup unconditionally.
func (c *PriceCalendar) PriceOn(symbol string, date, asOf time.Time, kind domain.PriceKind) (decimal.Decimal, error) {
	date = truncate(date)
	if date.After(truncate(asOf)) {
		return decimal.Decimal{}, errors.Wrapf(ErrFutureDate, "%s %s on %s asked as of %s",
			symbol, kind.String(), date.Format(domain.DateLayout), asOf.Format(domain.DateLayout))
	}

	bar, ok := c.bars[symbol][dateKey(date)]
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(ErrNotFound, "%s %s on %s",
			symbol, kind.String(), date.Format(domain.DateLayout))
	}

	switch kind {
	case domain.PriceOpen:
		return bar.Open, nil
	case domain.PriceClose:
		// the close of the dataset's most recent day is not yet "known"
		if !bar.HasClose || date.Equal(c.latest) {
			return decimal.Decimal{}, errors.Wrapf(ErrNotFound, "%s close on %s is withheld",
				symbol, date.Format(domain.DateLayout))
		}
		return bar.Close, nil
	default:
		return decimal.Decimal{}, errors.Errorf("unknown price kind %d", kind)
	}
}

// LatestTradableDate returns the maximum date with at least an open price.
func (c *PriceCalendar) LatestTradableDate() time.Time {
	return c.latest
}

// IsTradingDay reports whether any symbol has an open price on the date.
// Weekends and holidays simply have no bars.
func (c *PriceCalendar) IsTradingDay(date time.Time) bool {
	_, ok := c.daySet[dateKey(date)]
	return ok
}

// Symbols returns all symbols present in the dataset, sorted.
func (c *PriceCalendar) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// PricesOn collects the prices of every symbol that has one for the date,
// applying the same temporal guard as PriceOn.
func (c *PriceCalendar) PricesOn(date, asOf time.Time, kind domain.PriceKind) (map[string]decimal.Decimal, error) {
	date = truncate(date)
	if date.After(truncate(asOf)) {
		return nil, errors.Wrapf(ErrFutureDate, "prices on %s asked as of %s",
			date.Format(domain.DateLayout), asOf.Format(domain.DateLayout))
	}

	prices := make(map[string]decimal.Decimal)
	for _, symbol := range c.symbols {
		price, err := c.PriceOn(symbol, date, asOf, kind)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		prices[symbol] = price
	}
	return prices, nil
}

// CloseHistory returns up to limit known closing prices for the symbol on
// trading days up to and including asOf, oldest first. Withheld closes are
// skipped.
func (c *PriceCalendar) CloseHistory(symbol string, asOf time.Time, limit int) []decimal.Decimal {
	asOf = truncate(asOf)
	closes := make([]decimal.Decimal, 0, limit)
	for _, day := range c.days {
		if day.After(asOf) {
			break
		}
		price, err := c.PriceOn(symbol, day, asOf, domain.PriceClose)
		if err != nil {
			continue
		}
		closes = append(closes, price)
	}
	if limit > 0 && len(closes) > limit {
		closes = closes[len(closes)-limit:]
	}
	return closes
}

// PrevTradingDay returns the last trading day strictly before the date, or
// false when the dataset starts later.
func (c *PriceCalendar) PrevTradingDay(date time.Time) (time.Time, bool) {
	date = truncate(date)
	idx := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(date) })
	if idx == 0 {
		return time.Time{}, false
	}
	return c.days[idx-1], true
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format(domain.DateLayout)
}
