// Command compare renders a side-by-side performance report for every agent
// in a finished (or in-progress) run, reading the same ledgers and price
// dataset the run itself used.
//
// Usage:
//
//	compare --config config.yaml
package main

import (
	"fmt"
	"log"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/config"
	"github.com/aitrader/arena/internal/services/analysis"
	"github.com/aitrader/arena/internal/services/calendar"
	"github.com/aitrader/arena/internal/services/marketdata"
	"github.com/aitrader/arena/internal/storage/ledger"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("42"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("196"))
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	bars, err := marketdata.LoadJSONL(cfg.PricesFile)
	if err != nil {
		log.Fatalf("failed to load price dataset %s: %v", cfg.PricesFile, err)
	}
	cal, err := calendar.New(bars)
	if err != nil {
		log.Fatalf("failed to build price calendar: %v", err)
	}

	var results []*analysis.Performance
	for _, agent := range cfg.Agents {
		led, err := ledger.Open(cfg.AgentDataDir, agent.Identity)
		if err != nil {
			log.Fatalf("failed to open ledger for %s: %v", agent.Identity, err)
		}
		snapshots, err := led.Snapshots()
		led.Close()
		if err != nil {
			log.Fatalf("failed to read ledger for %s: %v", agent.Identity, err)
		}
		if len(snapshots) == 0 {
			fmt.Printf("agent %s has no data yet, skipping\n", agent.Identity)
			continue
		}

		perf, err := analysis.Evaluate(agent.Identity, snapshots, cal)
		if err != nil {
			log.Fatalf("failed to evaluate %s: %v", agent.Identity, err)
		}
		results = append(results, perf)
	}
	if len(results) == 0 {
		log.Fatal("no agent has committed any snapshots yet")
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].TotalReturn.GreaterThan(results[j].TotalReturn)
	})

	fmt.Println(titleStyle.Render("ARENA RESULTS"))

	returnCol := 2
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("AGENT", "FINAL EQUITY", "RETURN", "MAX DD", "VOL", "SHARPE", "TRADES", "HOLDS", "WIN RATE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == returnCol {
				if results[row].TotalReturn.IsNegative() {
					return lossStyle
				}
				return gainStyle
			}
			return cellStyle
		})

	for _, perf := range results {
		t.Row(
			perf.Agent,
			perf.FinalEquity.StringFixed(2),
			formatPercent(perf.TotalReturn),
			formatPercent(perf.MaxDrawdown),
			fmt.Sprintf("%.2f%%", perf.Volatility*100),
			fmt.Sprintf("%.2f", perf.Sharpe),
			fmt.Sprintf("%d", perf.Trades),
			fmt.Sprintf("%d", perf.HoldDays),
			fmt.Sprintf("%.0f%%", perf.WinRate*100),
		)
	}

	fmt.Println(t)
}

func formatPercent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
