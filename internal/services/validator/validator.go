// Package validator applies proposed trade actions to portfolio snapshots,
// enforcing the structural no-short/no-margin invariants and the per-agent
// risk limits.
package validator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/config"
	"github.com/aitrader/arena/internal/domain"
)

// Rejection reasons. All of them are recoverable: the caller commits the day
// as a hold instead.
var (
	ErrInvalidAmount      = errors.New("trade amount must be positive")
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPositionLimit      = errors.New("position exceeds max fraction of equity")
	ErrCashBuffer         = errors.New("cash would fall below required buffer")
)

// Validator is a pure state-transition function over snapshots. It holds no
// mutable state besides the configured limits, so one instance may serve
// concurrent agents.
type Validator struct {
	limits config.RiskLimits
}

// New creates a validator with the given risk limits.
func New(limits config.RiskLimits) *Validator {
	return &Validator{limits: limits}
}

// Apply validates the action against the snapshot and computes the successor
// snapshot. Both buys and sells execute at execPrice (the day's open). The
// priceOf callback values existing holdings for the equity-based risk
// limits; symbols it cannot price fall back to execPrice for the traded
// symbol and zero otherwise.
//
// On error the returned snapshot is the zero value; the caller is expected
// to commit a hold for the day instead.
func (v *Validator) Apply(snapshot domain.PortfolioSnapshot, action domain.TradeAction, date time.Time, execPrice decimal.Decimal, priceOf func(symbol string) (decimal.Decimal, bool)) (domain.PortfolioSnapshot, error) {
	switch action.Action {
	case domain.ActionHold:
		return v.hold(snapshot, date), nil
	case domain.ActionBuy:
		return v.buy(snapshot, action, date, execPrice, priceOf)
	case domain.ActionSell:
		return v.sell(snapshot, action, date, execPrice)
	default:
		return domain.PortfolioSnapshot{}, errors.Errorf("unknown action %d", action.Action)
	}
}

// Hold returns the hold successor of the snapshot for the date. It never
// fails: this is the fallback the runner commits on any rejection.
func (v *Validator) Hold(snapshot domain.PortfolioSnapshot, date time.Time) domain.PortfolioSnapshot {
	return v.hold(snapshot, date)
}

func (v *Validator) hold(snapshot domain.PortfolioSnapshot, date time.Time) domain.PortfolioSnapshot {
	next := snapshot.Clone()
	next.Date = date
	next.SequenceID = snapshot.SequenceID + 1
	hold := domain.Hold()
	next.LastAction = &hold
	return next
}

func (v *Validator) buy(snapshot domain.PortfolioSnapshot, action domain.TradeAction, date time.Time, execPrice decimal.Decimal, priceOf func(string) (decimal.Decimal, bool)) (domain.PortfolioSnapshot, error) {
	if action.Amount <= 0 {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrInvalidAmount, "buy %s x%d", action.Symbol, action.Amount)
	}

	cost := execPrice.Mul(decimal.NewFromInt(action.Amount))
	if cost.GreaterThan(snapshot.Cash) {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrInsufficientCash,
			"buy %s x%d costs %s, cash is %s", action.Symbol, action.Amount, cost.String(), snapshot.Cash.String())
	}

	equity := v.equity(snapshot, action.Symbol, execPrice, priceOf)

	positionAfter := decimal.NewFromInt(snapshot.Shares(action.Symbol) + action.Amount).Mul(execPrice)
	if positionAfter.GreaterThan(v.limits.MaxPositionFraction.Mul(equity)) {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrPositionLimit,
			"%s position would be %s of %s equity (limit %s)",
			action.Symbol, positionAfter.String(), equity.String(), v.limits.MaxPositionFraction.String())
	}

	cashAfter := snapshot.Cash.Sub(cost)
	if cashAfter.LessThan(v.limits.MinCashFraction.Mul(equity)) {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrCashBuffer,
			"cash after buy would be %s, buffer is %s of %s equity",
			cashAfter.String(), v.limits.MinCashFraction.String(), equity.String())
	}

	next := snapshot.Clone()
	next.Date = date
	next.SequenceID = snapshot.SequenceID + 1
	next.Cash = cashAfter
	next.Holdings[action.Symbol] += action.Amount
	next.LastAction = &action
	return next, nil
}

func (v *Validator) sell(snapshot domain.PortfolioSnapshot, action domain.TradeAction, date time.Time, execPrice decimal.Decimal) (domain.PortfolioSnapshot, error) {
	if action.Amount <= 0 {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrInvalidAmount, "sell %s x%d", action.Symbol, action.Amount)
	}

	held := snapshot.Shares(action.Symbol)
	if action.Amount > held {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrInsufficientShares,
			"sell %s x%d, holding %d", action.Symbol, action.Amount, held)
	}

	next := snapshot.Clone()
	next.Date = date
	next.SequenceID = snapshot.SequenceID + 1
	next.Cash = snapshot.Cash.Add(execPrice.Mul(decimal.NewFromInt(action.Amount)))
	if remaining := held - action.Amount; remaining == 0 {
		delete(next.Holdings, action.Symbol)
	} else {
		next.Holdings[action.Symbol] = remaining
	}
	next.LastAction = &action
	return next, nil
}

// equity values the snapshot at today's prices. The traded symbol uses the
// execution price when the callback has no quote for it.
func (v *Validator) equity(snapshot domain.PortfolioSnapshot, tradedSymbol string, execPrice decimal.Decimal, priceOf func(string) (decimal.Decimal, bool)) decimal.Decimal {
	return snapshot.Equity(func(symbol string) (decimal.Decimal, bool) {
		if priceOf != nil {
			if price, ok := priceOf(symbol); ok {
				return price, true
			}
		}
		if symbol == tradedSymbol {
			return execPrice, true
		}
		return decimal.Decimal{}, false
	})
}
