package domain

// Action represents the type of trading action an agent can take.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

// action string constants to avoid magic strings
const (
	actionStringHold = "hold"
	actionStringBuy  = "buy"
	actionStringSell = "sell"
)

// isValidActionString checks if the string is a valid action
func isValidActionString(s string) bool {
	switch s {
	case actionStringHold, actionStringBuy, actionStringSell:
		return true
	}
	return false
}

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionHold:
		return actionStringHold
	case ActionBuy:
		return actionStringBuy
	case ActionSell:
		return actionStringSell
	default:
		return "unknown"
	}
}

// ActionFromString parses the string form used in decision payloads and
// ledger records.
func ActionFromString(s string) (Action, bool) {
	switch s {
	case actionStringHold:
		return ActionHold, true
	case actionStringBuy:
		return ActionBuy, true
	case actionStringSell:
		return ActionSell, true
	}
	return ActionHold, false
}

// TradeAction is a single proposed or committed trade instruction.
// Symbol is empty and Amount is zero for hold.
type TradeAction struct {
	Action Action
	Symbol string
	Amount int64
}

// Hold returns the no-op trade action.
func Hold() TradeAction {
	return TradeAction{Action: ActionHold}
}

// IsHold reports whether the action leaves holdings untouched.
func (t TradeAction) IsHold() bool {
	return t.Action == ActionHold
}
