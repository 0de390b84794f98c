// Package promptbuilder formats portfolio state, prices and indicators into
// the prompts sent to the decision model.
package promptbuilder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/config"
	"github.com/aitrader/arena/internal/domain"
	"github.com/aitrader/arena/internal/services/indicators"
)

// TradingContext is everything the model may see for one agent-day. It is
// assembled by the runner strictly from data at or before the simulated
// date.
type TradingContext struct {
	Agent          string
	Date           time.Time
	Snapshot       domain.PortfolioSnapshot
	TodayOpen      map[string]decimal.Decimal
	YesterdayOpen  map[string]decimal.Decimal
	YesterdayClose map[string]decimal.Decimal
	Signals        map[string]indicators.DailySignals
	RecentActions  []string
}

// PromptBuilder renders system and user prompts for one agent.
type PromptBuilder struct {
	preset StrategyPreset
	limits config.RiskLimits
}

// New creates a prompt builder for the strategy preset and risk limits.
func New(preset StrategyPreset, limits config.RiskLimits) *PromptBuilder {
	return &PromptBuilder{preset: preset, limits: limits}
}

// BuildSystemPrompt renders the per-day system prompt.
func (b *PromptBuilder) BuildSystemPrompt(ctx TradingContext) string {
	var sb strings.Builder

	sb.WriteString("You are a trading analysis agent competing in a simulated stock market.\n\n")
	fmt.Fprintf(&sb, "Today's Date: %s\n\n", ctx.Date.Format(domain.DateLayout))

	fmt.Fprintf(&sb, "## Strategy: %s\n\n%s\n\n", b.preset.Name, b.preset.Framework)

	sb.WriteString("## Trading Rules\n\n")
	fmt.Fprintf(&sb, "- Max position: %s of portfolio equity per symbol\n", formatPercent(b.limits.MaxPositionFraction))
	fmt.Fprintf(&sb, "- Min cash buffer: %s of portfolio equity\n", formatPercent(b.limits.MinCashFraction))
	fmt.Fprintf(&sb, "- Decisions below %.2f confidence are not executed\n", b.limits.ConfidenceThreshold)
	sb.WriteString("- One decision per trading day, executed at the market open price\n\n")

	sb.WriteString("## Current Positions\n\n")
	b.writePositions(&sb, ctx.Snapshot)

	sb.WriteString("\n## Prices\n\n")
	writePriceTable(&sb, "Yesterday's Open", ctx.YesterdayOpen)
	writePriceTable(&sb, "Yesterday's Close", ctx.YesterdayClose)
	writePriceTable(&sb, "Today's Open", ctx.TodayOpen)

	if len(ctx.Signals) > 0 {
		sb.WriteString("\n## Indicators\n\n")
		b.writeSignals(&sb, ctx.Signals)
	}

	if len(ctx.RecentActions) > 0 {
		sb.WriteString("\n## Recent Decisions (oldest first)\n\n")
		for _, line := range ctx.RecentActions {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	return sb.String()
}

// BuildUserPrompt renders the per-day user instruction.
func (b *PromptBuilder) BuildUserPrompt(ctx TradingContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze today's (%s) trading opportunity and make a decision.\n\n", ctx.Date.Format(domain.DateLayout))
	sb.WriteString("Use the positions, prices and indicators above. ")
	sb.WriteString("Trade only symbols listed under Today's Open.\n\n")
	sb.WriteString(decisionFormat)
	sb.WriteString("\n\nBegin your analysis now.")

	return sb.String()
}

func (b *PromptBuilder) writePositions(sb *strings.Builder, snapshot domain.PortfolioSnapshot) {
	fmt.Fprintf(sb, "CASH: %s\n", snapshot.Cash.StringFixed(2))
	symbols := make([]string, 0, len(snapshot.Holdings))
	for sym := range snapshot.Holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		fmt.Fprintf(sb, "%s: %d shares\n", sym, snapshot.Holdings[sym])
	}
}

func (b *PromptBuilder) writeSignals(sb *strings.Builder, signals map[string]indicators.DailySignals) {
	symbols := make([]string, 0, len(signals))
	for sym := range signals {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		s := signals[sym]
		fmt.Fprintf(sb, "%s: SMA5=%s SMA20=%s EMA20=%s RSI14=%s\n",
			sym, s.SMA5.StringFixed(2), s.SMA20.StringFixed(2), s.EMA20.StringFixed(2), s.RSI14.StringFixed(2))
	}
}

func writePriceTable(sb *strings.Builder, title string, prices map[string]decimal.Decimal) {
	if len(prices) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", title)
	symbols := make([]string, 0, len(prices))
	for sym := range prices {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		fmt.Fprintf(sb, "  %s: %s\n", sym, prices[sym].StringFixed(2))
	}
}

func formatPercent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
}
