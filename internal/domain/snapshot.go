// Package domain defines core data structures shared by the backtest arena.
package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CashSymbol is the distinguished holdings key for uninvested cash.
const CashSymbol = "CASH"

// DateLayout is the ISO date format used in ledgers, logs and price data.
const DateLayout = "2006-01-02"

// PortfolioSnapshot is one immutable portfolio state of a single agent at a
// trading day. Snapshots form an append-only chain: each one is produced from
// its predecessor by exactly one TradeAction (or no action for the initial
// funding snapshot) and is never mutated after it is written.
type PortfolioSnapshot struct {
	Date       time.Time
	SequenceID int64
	Cash       decimal.Decimal
	Holdings   map[string]int64
	// LastAction is the action that produced this snapshot from its
	// predecessor. Nil for the initial funding snapshot.
	LastAction *TradeAction
}

// NewInitialSnapshot builds the funding snapshot an agent starts from.
func NewInitialSnapshot(date time.Time, cash decimal.Decimal) PortfolioSnapshot {
	return PortfolioSnapshot{
		Date:       date,
		SequenceID: 1,
		Cash:       cash,
		Holdings:   make(map[string]int64),
	}
}

// Shares returns the share count held for symbol, zero when absent.
func (s PortfolioSnapshot) Shares(symbol string) int64 {
	return s.Holdings[symbol]
}

// Clone returns a deep copy so the original snapshot stays immutable.
func (s PortfolioSnapshot) Clone() PortfolioSnapshot {
	holdings := make(map[string]int64, len(s.Holdings))
	for sym, qty := range s.Holdings {
		holdings[sym] = qty
	}
	clone := s
	clone.Holdings = holdings
	if s.LastAction != nil {
		action := *s.LastAction
		clone.LastAction = &action
	}
	return clone
}

// Validate checks the structural invariants every committed snapshot must
// satisfy: non-negative cash and no short positions.
func (s PortfolioSnapshot) Validate() error {
	if s.SequenceID < 1 {
		return errors.Errorf("snapshot sequence id must be positive, got %d", s.SequenceID)
	}
	if s.Cash.IsNegative() {
		return errors.Errorf("snapshot cash is negative: %s", s.Cash.String())
	}
	for sym, qty := range s.Holdings {
		if qty < 0 {
			return errors.Errorf("short position for %s: %d", sym, qty)
		}
	}
	return nil
}

// Equity values the snapshot at the given per-symbol prices. Symbols without
// a price are valued at zero.
func (s PortfolioSnapshot) Equity(priceOf func(symbol string) (decimal.Decimal, bool)) decimal.Decimal {
	total := s.Cash
	for sym, qty := range s.Holdings {
		price, ok := priceOf(sym)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(qty)))
	}
	return total
}
