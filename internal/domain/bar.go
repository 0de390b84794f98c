package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceKind selects which side of a daily bar a price lookup refers to.
type PriceKind int

const (
	// PriceOpen is the day's opening price. All trades execute at the open.
	PriceOpen PriceKind = iota
	// PriceClose is the day's closing price, used for reporting only.
	PriceClose
)

// String returns the string representation of the price kind.
func (k PriceKind) String() string {
	switch k {
	case PriceOpen:
		return "open"
	case PriceClose:
		return "close"
	default:
		return "unknown"
	}
}

// DailyBar is one symbol's open/close prices for a single trading day.
// HasClose is false for the most recent day in a dataset: in a same-day
// backtest the close is not yet known, so the loader withholds it.
type DailyBar struct {
	Symbol   string
	Date     time.Time
	Open     decimal.Decimal
	Close    decimal.Decimal
	HasClose bool
}
