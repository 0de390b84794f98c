// Command fetchprices downloads daily OHLC bars from Stooq and writes them
// to the JSONL dataset the arena consumes.
//
// Usage:
//
//	fetchprices -symbols AAPL,MSFT,NVDA -from 2025-01-01 -to 2025-06-30 -out data/prices.jsonl
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aitrader/arena/internal/domain"
	"github.com/aitrader/arena/internal/services/marketdata"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "comma-separated stock symbols (e.g. AAPL,MSFT)")
	fromFlag := flag.String("from", "", "start date, YYYY-MM-DD")
	toFlag := flag.String("to", "", "end date, YYYY-MM-DD")
	outFlag := flag.String("out", "data/prices.jsonl", "output JSONL path")
	flag.Parse()

	if *symbolsFlag == "" {
		log.Fatal("-symbols is required")
	}
	from, err := time.Parse(domain.DateLayout, *fromFlag)
	if err != nil {
		log.Fatalf("invalid -from date: %v", err)
	}
	to, err := time.Parse(domain.DateLayout, *toFlag)
	if err != nil {
		log.Fatalf("invalid -to date: %v", err)
	}

	var symbols []string
	for _, s := range strings.Split(*symbolsFlag, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fetcher := marketdata.NewStooqFetcher(logger)
	bars, err := fetcher.FetchDaily(ctx, symbols, from, to)
	if err != nil {
		logger.Fatal("fetch failed", zap.Error(err))
	}
	if len(bars) == 0 {
		logger.Fatal("no bars fetched, check symbols and date range")
	}

	if err := marketdata.WriteJSONL(*outFlag, bars); err != nil {
		logger.Fatal("write failed", zap.String("path", *outFlag), zap.Error(err))
	}
	logger.Info("dataset written",
		zap.String("path", *outFlag),
		zap.Int("bars", len(bars)),
		zap.Int("symbols", len(symbols)))
}
