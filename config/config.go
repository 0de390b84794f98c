// Package config loads the arena run configuration from a YAML file.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aitrader/arena/internal/domain"
)

// Documented defaults for unset fields.
const (
	DefaultInitialCash    = "10000.0"
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 1 * time.Second
	DefaultMaxStepsPerDay = 30

	defaultPricesFile   = "data/prices.jsonl"
	defaultAgentDataDir = "data/agent_data"
	defaultAPIURL       = "https://openrouter.ai/api/v1/chat/completions"
)

// Default risk limits, matching the conservative momentum preset.
const (
	defaultMaxPositionFraction = "0.15"
	defaultMinCashFraction     = "0.20"
	defaultConfidence          = 0.7
)

// RiskLimits are per-agent, config-driven trading constraints applied by the
// validator on top of the structural cash/shares checks.
type RiskLimits struct {
	// MaxPositionFraction caps a single position at this fraction of equity.
	MaxPositionFraction decimal.Decimal
	// MinCashFraction is the cash buffer a buy must not dip below.
	MinCashFraction decimal.Decimal
	// ConfidenceThreshold is the minimum model confidence to act on a trade.
	ConfidenceThreshold float64
}

// AgentConfig describes one competing agent.
type AgentConfig struct {
	Identity string
	Enabled  bool
	Strategy string
	Model    string
	Risk     RiskLimits
}

// Config is the full run configuration.
type Config struct {
	InitDate       time.Time
	EndDate        time.Time
	InitialCash    decimal.Decimal
	MaxRetries     int
	BaseDelay      time.Duration
	MaxStepsPerDay int

	PricesFile   string
	AgentDataDir string

	DashboardAddr string
	DashboardHost string // non-empty enables autocert TLS for this hostname

	APIURL string

	Agents []AgentConfig
}

type riskTmp struct {
	MaxPositionFraction string  `yaml:"max_position_fraction,omitempty"`
	MinCashFraction     string  `yaml:"min_cash_fraction,omitempty"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty"`
}

type agentTmp struct {
	Identity string  `yaml:"identity"`
	Enabled  *bool   `yaml:"enabled,omitempty"`
	Strategy string  `yaml:"strategy,omitempty"`
	Model    string  `yaml:"model"`
	Risk     riskTmp `yaml:"risk,omitempty"`
}

type configTmp struct {
	DateRange struct {
		InitDate string `yaml:"init_date"`
		EndDate  string `yaml:"end_date"`
	} `yaml:"date_range"`
	InitialCash    string        `yaml:"initial_cash,omitempty"`
	MaxRetries     *int          `yaml:"max_retries,omitempty"`
	BaseDelay      time.Duration `yaml:"base_delay,omitempty"`
	MaxStepsPerDay int           `yaml:"max_steps_per_day,omitempty"`
	PricesFile     string        `yaml:"prices_file,omitempty"`
	AgentDataDir   string        `yaml:"agent_data_dir,omitempty"`
	DashboardAddr  string        `yaml:"dashboard_addr,omitempty"`
	DashboardHost  string        `yaml:"dashboard_host,omitempty"`
	APIURL         string        `yaml:"api_url,omitempty"`
	Agents         []agentTmp    `yaml:"agents"`
}

// Get parses the -config flag and loads the run configuration.
func Get() (*Config, error) {
	path := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()
	return Load(*path)
}

// Load reads and validates a YAML run configuration file.
func Load(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, err
	}
	return fromTmp(tmp)
}

func fromTmp(tmp configTmp) (*Config, error) {
	initDate, err := time.Parse(domain.DateLayout, tmp.DateRange.InitDate)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'init_date' param in yaml config: %s, error: %w", tmp.DateRange.InitDate, err)
	}
	endDate, err := time.Parse(domain.DateLayout, tmp.DateRange.EndDate)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'end_date' param in yaml config: %s, error: %w", tmp.DateRange.EndDate, err)
	}
	if endDate.Before(initDate) {
		return nil, fmt.Errorf("'end_date' %s is before 'init_date' %s", tmp.DateRange.EndDate, tmp.DateRange.InitDate)
	}

	if tmp.InitialCash == "" {
		tmp.InitialCash = DefaultInitialCash
	}
	initialCash, err := decimal.NewFromString(tmp.InitialCash)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'initial_cash' param in yaml config (must be a decimal), error: %w", err)
	}
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("'initial_cash' must not be negative, got %s", initialCash.String())
	}

	cfg := &Config{
		InitDate:       initDate,
		EndDate:        endDate,
		InitialCash:    initialCash,
		MaxRetries:     DefaultMaxRetries,
		BaseDelay:      DefaultBaseDelay,
		MaxStepsPerDay: DefaultMaxStepsPerDay,
		PricesFile:     tmp.PricesFile,
		AgentDataDir:   tmp.AgentDataDir,
		DashboardAddr:  tmp.DashboardAddr,
		DashboardHost:  tmp.DashboardHost,
		APIURL:         tmp.APIURL,
	}
	if tmp.MaxRetries != nil {
		if *tmp.MaxRetries < 0 {
			return nil, fmt.Errorf("'max_retries' must not be negative, got %d", *tmp.MaxRetries)
		}
		cfg.MaxRetries = *tmp.MaxRetries
	}
	if tmp.BaseDelay > 0 {
		cfg.BaseDelay = tmp.BaseDelay
	}
	if tmp.MaxStepsPerDay > 0 {
		cfg.MaxStepsPerDay = tmp.MaxStepsPerDay
	}
	if cfg.PricesFile == "" {
		cfg.PricesFile = defaultPricesFile
	}
	if cfg.AgentDataDir == "" {
		cfg.AgentDataDir = defaultAgentDataDir
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}

	if len(tmp.Agents) == 0 {
		return nil, fmt.Errorf("at least one agent must be configured")
	}
	seen := make(map[string]struct{}, len(tmp.Agents))
	for _, a := range tmp.Agents {
		if a.Identity == "" {
			return nil, fmt.Errorf("agent 'identity' must not be empty")
		}
		if _, dup := seen[a.Identity]; dup {
			return nil, fmt.Errorf("duplicate agent identity: %s", a.Identity)
		}
		seen[a.Identity] = struct{}{}

		agent := AgentConfig{
			Identity: a.Identity,
			Enabled:  true,
			Strategy: a.Strategy,
			Model:    a.Model,
		}
		if a.Enabled != nil {
			agent.Enabled = *a.Enabled
		}
		agent.Risk, err = riskFromTmp(a.Risk)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Identity, err)
		}
		cfg.Agents = append(cfg.Agents, agent)
	}

	return cfg, nil
}

func riskFromTmp(tmp riskTmp) (RiskLimits, error) {
	if tmp.MaxPositionFraction == "" {
		tmp.MaxPositionFraction = defaultMaxPositionFraction
	}
	if tmp.MinCashFraction == "" {
		tmp.MinCashFraction = defaultMinCashFraction
	}

	maxPosition, err := decimal.NewFromString(tmp.MaxPositionFraction)
	if err != nil {
		return RiskLimits{}, fmt.Errorf("incorrect 'max_position_fraction' (must be a decimal): %w", err)
	}
	minCash, err := decimal.NewFromString(tmp.MinCashFraction)
	if err != nil {
		return RiskLimits{}, fmt.Errorf("incorrect 'min_cash_fraction' (must be a decimal): %w", err)
	}

	limits := RiskLimits{
		MaxPositionFraction: maxPosition,
		MinCashFraction:     minCash,
		ConfidenceThreshold: tmp.ConfidenceThreshold,
	}
	if limits.ConfidenceThreshold == 0 {
		limits.ConfidenceThreshold = defaultConfidence
	}

	one := decimal.NewFromInt(1)
	if maxPosition.IsNegative() || maxPosition.GreaterThan(one) {
		return RiskLimits{}, fmt.Errorf("'max_position_fraction' must be in [0,1], got %s", maxPosition.String())
	}
	if minCash.IsNegative() || minCash.GreaterThan(one) {
		return RiskLimits{}, fmt.Errorf("'min_cash_fraction' must be in [0,1], got %s", minCash.String())
	}
	if limits.ConfidenceThreshold < 0 || limits.ConfidenceThreshold > 1 {
		return RiskLimits{}, fmt.Errorf("'confidence_threshold' must be in [0,1], got %f", limits.ConfidenceThreshold)
	}

	return limits, nil
}
