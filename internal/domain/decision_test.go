package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    Decision
	}{
		{
			name: "decision block",
			raw: `Some analysis text.
<DECISION>
{"action": "buy", "symbol": "AAPL", "amount": 10, "confidence": 0.85, "reasoning": "uptrend"}
</DECISION>
trailing text`,
			want: Decision{Action: "buy", Symbol: "AAPL", Amount: 10, Confidence: 0.85, Reasoning: "uptrend"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"action\": \"hold\", \"symbol\": \"\", \"amount\": 0, \"confidence\": 0.4, \"reasoning\": \"uncertain\"}\n```",
			want: Decision{Action: "hold", Confidence: 0.4, Reasoning: "uncertain"},
		},
		{
			name: "bare json sell",
			raw:  `{"action": "sell", "symbol": "MSFT", "amount": 5, "confidence": 0.9, "reasoning": "overbought"}`,
			want: Decision{Action: "sell", Symbol: "MSFT", Amount: 5, Confidence: 0.9, Reasoning: "overbought"},
		},
		{
			name:    "not json",
			raw:     "I think we should probably buy some AAPL today.",
			wantErr: true,
		},
		{
			name:    "unknown action",
			raw:     `{"action": "short", "symbol": "TSLA", "amount": 3, "confidence": 0.5}`,
			wantErr: true,
		},
		{
			name:    "buy without symbol",
			raw:     `{"action": "buy", "symbol": "", "amount": 3, "confidence": 0.5}`,
			wantErr: true,
		},
		{
			name:    "buy with zero amount",
			raw:     `{"action": "buy", "symbol": "AAPL", "amount": 0, "confidence": 0.5}`,
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			raw:     `{"action": "hold", "symbol": "", "amount": 0, "confidence": 1.5}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := NewDecision(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *decision)
		})
	}
}

func TestDecisionToTradeAction(t *testing.T) {
	buy := Decision{Action: "buy", Symbol: "AAPL", Amount: 10, Confidence: 0.8}
	assert.Equal(t, TradeAction{Action: ActionBuy, Symbol: "AAPL", Amount: 10}, buy.ToTradeAction())

	hold := Decision{Action: "hold", Confidence: 0.3}
	assert.True(t, hold.ToTradeAction().IsHold())
}
