// Command arena runs an LLM trading agent competition over a historical
// daily price dataset. Each configured agent gets one decision per trading
// day, committed to its own append-only position ledger.
//
// Usage:
//
//	arena --config config.yaml
//	arena setup (interactive configuration wizard)
//
// Required environment variables:
//
//	LLM_API_KEY: API key for the OpenAI-compatible decision endpoint
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aitrader/arena/config"
	"github.com/aitrader/arena/dashboard"
	"github.com/aitrader/arena/internal/clients"
	"github.com/aitrader/arena/internal/services/calendar"
	"github.com/aitrader/arena/internal/services/marketdata"
	"github.com/aitrader/arena/internal/services/runner"
	"github.com/aitrader/arena/internal/setup"
	"github.com/aitrader/arena/internal/storage/ledger"
	"github.com/aitrader/arena/internal/storage/runevents"
	"github.com/aitrader/arena/internal/storage/tracelog"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	// .env is optional; real env vars win
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		log.Fatal("LLM_API_KEY environment variable must be set")
	}

	bars, err := marketdata.LoadJSONL(cfg.PricesFile)
	if err != nil {
		logger.Fatal("failed to load price dataset", zap.String("path", cfg.PricesFile), zap.Error(err))
	}
	cal, err := calendar.New(bars)
	if err != nil {
		logger.Fatal("failed to build price calendar", zap.Error(err))
	}

	events, err := runevents.NewWALStore("")
	if err != nil {
		logger.Fatal("failed to open run events store", zap.Error(err))
	}
	defer events.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.DashboardAddr != "" {
		server := dashboard.NewServer(cfg.DashboardAddr, events, events, logger)
		g.Go(func() error {
			logger.Info("dashboard listening", zap.String("addr", cfg.DashboardAddr))
			if cfg.DashboardHost != "" {
				return server.StartWithAutoTLS(ctx, []string{cfg.DashboardHost}, "")
			}
			return server.Start(ctx)
		})
	}

	for _, agent := range cfg.Agents {
		if !agent.Enabled {
			logger.Info("agent disabled, skipping", zap.String("agent", agent.Identity))
			continue
		}

		led, err := ledger.Open(cfg.AgentDataDir, agent.Identity)
		if err != nil {
			logger.Fatal("failed to open ledger", zap.String("agent", agent.Identity), zap.Error(err))
		}
		defer led.Close()

		trace := tracelog.New(cfg.AgentDataDir, agent.Identity)
		client := clients.NewOpenAICompatibleClient(cfg.APIURL, apiKey, agent.Model)

		r := runner.New(cfg, agent, cal, led, trace, events, client, logger)
		g.Go(func() error {
			// one agent's failure must not take the others down
			if err := r.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("agent session failed", zap.String("agent", agent.Identity), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("run failed", zap.Error(err))
	}
	logger.Info("arena stopped")
}
