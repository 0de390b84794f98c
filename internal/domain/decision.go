package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// decisionBlockRe extracts the JSON payload from a <DECISION>...</DECISION>
// block in the model's free-text response.
var decisionBlockRe = regexp.MustCompile(`(?s)<DECISION>\s*(\{.*?\})\s*</DECISION>`)

// Decision is the model's structured trading decision for one day.
type Decision struct {
	Action     string  `json:"action"`
	Symbol     string  `json:"symbol"`
	Amount     int64   `json:"amount"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// NewDecision extracts and validates a trading decision from raw model
// output. The payload may be wrapped in a <DECISION> block, fenced as
// markdown JSON, or be bare JSON.
func NewDecision(raw string) (*Decision, error) {
	payload := sanitizeDecisionPayload(raw)

	if !json.Valid([]byte(payload)) {
		return nil, errors.New("invalid JSON structure")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	if err := decision.Validate(); err != nil {
		return nil, err
	}

	return &decision, nil
}

func sanitizeDecisionPayload(raw string) string {
	if m := decisionBlockRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	return strings.TrimSpace(payload)
}

// Validate validates the decision.
func (d *Decision) Validate() error {
	if d.Action == "" {
		return errors.New("action field is required")
	}
	if !isValidActionString(d.Action) {
		return fmt.Errorf("invalid action: %s", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("invalid confidence: %f (must be 0.0-1.0)", d.Confidence)
	}
	if d.Action == actionStringHold {
		return nil
	}
	if d.Symbol == "" {
		return errors.New("symbol is required for buy/sell")
	}
	if d.Amount <= 0 {
		return fmt.Errorf("invalid amount: %d (must be positive for buy/sell)", d.Amount)
	}
	return nil
}

// ToTradeAction converts the decision into the typed trade action consumed
// by the validator.
func (d *Decision) ToTradeAction() TradeAction {
	action, ok := ActionFromString(d.Action)
	if !ok || action == ActionHold {
		return Hold()
	}
	return TradeAction{Action: action, Symbol: d.Symbol, Amount: d.Amount}
}
