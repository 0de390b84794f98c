package promptbuilder

// StrategyPreset carries the analysis framework text for one strategy
// flavor. Presets differ only in data — the trading core is identical for
// every agent.
type StrategyPreset struct {
	Name      string
	Framework string
}

const decisionFormat = `**IMPORTANT**: You must output your decision in this exact format:

<DECISION>
{
  "action": "buy|sell|hold",
  "symbol": "AAPL",
  "amount": 10,
  "confidence": 0.85,
  "reasoning": "Brief explanation"
}
</DECISION>

Rules:
- **action**: Must be "buy", "sell", or "hold"
- **symbol**: Stock symbol (required for buy/sell, empty string for hold)
- **amount**: Number of shares (integer, required for buy/sell, 0 for hold)
- **confidence**: Your confidence in the decision, 0.0-1.0
- If uncertain or analysis is inconclusive, use action="hold" with confidence below 0.5
- No short selling and no margin: you can only sell shares you hold and buy with cash you have
- All trades execute once per day at the market open price`

var presets = map[string]StrategyPreset{
	"momentum": {
		Name: "Momentum",
		Framework: `### Core Concept
Follow the trend. Buy stocks with strong upward momentum, exit on trend breaks.

### Analysis Steps
1. Trend: bullish when SMA(5) > SMA(20) and price > SMA(5); bearish when SMA(5) < SMA(20)
2. RSI confirmation: buy zone is RSI 40-70; avoid RSI above 75 (overbought)
3. Decision: BUY on bullish trend with RSI confirmation; SELL on trend break or stop loss -10%`,
	},
	"value": {
		Name: "Value",
		Framework: `### Core Concept
Buy quality at a discount. Prefer symbols trading below their recent average
price without a deteriorating trend; exit when price runs well above it.

### Analysis Steps
1. Discount: compare price to SMA(20); meaningful discounts are candidates
2. Stability: avoid symbols in free fall (RSI below 30 and falling)
3. Decision: BUY on discount with stable trend; SELL when price stretches far above SMA(20)`,
	},
	"portfolio": {
		Name: "Portfolio",
		Framework: `### Core Concept
Balanced multi-factor portfolio. Diversify across symbols, rebalance
gradually, never concentrate.

### Analysis Steps
1. Review current weights against equity
2. Trim overweight winners, add underweight quality names
3. Decision: prefer small adjustments over large swings; hold when balanced`,
	},
}

var defaultPreset = StrategyPreset{
	Name: "Generalist",
	Framework: `### Core Concept
Maximize long-term portfolio value through rational analysis of the
provided prices and indicators. Preserve capital when uncertain.`,
}

// PresetFor returns the preset for a configured strategy name, falling back
// to the generalist preset for unknown names.
func PresetFor(strategy string) StrategyPreset {
	if preset, ok := presets[strategy]; ok {
		return preset
	}
	return defaultPreset
}
