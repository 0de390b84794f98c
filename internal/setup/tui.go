// Package setup provides a terminal wizard that generates an arena run
// configuration file.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aitrader/arena/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// generated mirrors the yaml layout the config loader reads.
type generated struct {
	DateRange struct {
		InitDate string `yaml:"init_date"`
		EndDate  string `yaml:"end_date"`
	} `yaml:"date_range"`
	InitialCash   string           `yaml:"initial_cash"`
	PricesFile    string           `yaml:"prices_file,omitempty"`
	DashboardAddr string           `yaml:"dashboard_addr,omitempty"`
	APIURL        string           `yaml:"api_url,omitempty"`
	Agents        []generatedAgent `yaml:"agents"`
}

type generatedAgent struct {
	Identity string `yaml:"identity"`
	Strategy string `yaml:"strategy"`
	Model    string `yaml:"model"`
	Risk     struct {
		MaxPositionFraction string  `yaml:"max_position_fraction,omitempty"`
		MinCashFraction     string  `yaml:"min_cash_fraction,omitempty"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty"`
	} `yaml:"risk,omitempty"`
}

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		initDate      string
		endDate       string
		initialCash   string
		pricesFile    string
		dashboardAddr string
		apiURL        string
		confirm       bool
	)

	// defaults
	initialCash = "10000.0"
	pricesFile = "data/prices.jsonl"
	dashboardAddr = ":8080"
	apiURL = "https://openrouter.ai/api/v1/chat/completions"

	// step 1: welcome + date range
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("ARENA CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set up your agent competition.\n"))

	fmt.Println(stepStyle.Render("STEP 1: DATE RANGE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Init Date").
				Description("First day of the run, YYYY-MM-DD").
				Value(&initDate).
				Validate(validateDate),
			huh.NewInput().
				Title("End Date").
				Description("Last day of the run, YYYY-MM-DD").
				Value(&endDate).
				Validate(validateDate),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: funding
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ARENA CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: FUNDING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Initial Cash per Agent").
				Description("Starting cash balance (e.g. 10000.0)").
				Value(&initialCash).
				Validate(validateCash),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: agents
	var agents []generatedAgent
	for {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("ARENA CONFIG WIZARD"))
		fmt.Println(stepStyle.Render(fmt.Sprintf("STEP 3: AGENT %d", len(agents)+1)))

		agent, err := promptAgent()
		if err != nil {
			return err
		}
		agents = append(agents, agent)

		var more bool
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Add another agent?").
					Value(&more),
			),
		).Run()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	// step 4: infrastructure
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ARENA CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: INFRASTRUCTURE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Prices File").
				Description("JSONL daily bars dataset").
				Value(&pricesFile),
			huh.NewInput().
				Title("Dashboard Address").
				Description("Leave empty to disable the dashboard").
				Value(&dashboardAddr),
			huh.NewInput().
				Title("LLM API URL").
				Value(&apiURL),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ARENA CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Dates: %s .. %s\nInitial Cash: %s\nAgents: %d\nPrices: %s\nDashboard: %s\n",
		initDate, endDate, initialCash, len(agents), pricesFile, dashboardAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfg := generated{
		InitialCash:   initialCash,
		PricesFile:    pricesFile,
		DashboardAddr: dashboardAddr,
		APIURL:        apiURL,
		Agents:        agents,
	}
	cfg.DateRange.InitDate = initDate
	cfg.DateRange.EndDate = endDate

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func promptAgent() (generatedAgent, error) {
	var agent generatedAgent
	agent.Risk.MaxPositionFraction = "0.15"
	agent.Risk.MinCashFraction = "0.20"
	agent.Risk.ConfidenceThreshold = 0.7

	confidenceStr := "0.7"
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Agent Identity").
				Description("Unique name, used as the data directory").
				Value(&agent.Identity).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("identity cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Strategy").
				Options(
					huh.NewOption("Momentum", "momentum"),
					huh.NewOption("Value", "value"),
					huh.NewOption("Portfolio", "portfolio"),
				).
				Value(&agent.Strategy),
			huh.NewInput().
				Title("Model Name").
				Description("e.g. deepseek/deepseek-v3.2-exp").
				Value(&agent.Model),
			huh.NewInput().
				Title("Max Position Fraction").
				Description("Cap per symbol as fraction of equity (0-1)").
				Value(&agent.Risk.MaxPositionFraction).
				Validate(validateFraction),
			huh.NewInput().
				Title("Min Cash Fraction").
				Description("Cash buffer as fraction of equity (0-1)").
				Value(&agent.Risk.MinCashFraction).
				Validate(validateFraction),
			huh.NewInput().
				Title("Confidence Threshold").
				Description("Decisions below it are held (0-1)").
				Value(&confidenceStr).
				Validate(validateFloatFraction),
		),
	).Run()
	if err != nil {
		return generatedAgent{}, err
	}

	fmt.Sscanf(confidenceStr, "%f", &agent.Risk.ConfidenceThreshold)
	return agent, nil
}

func validateDate(s string) error {
	_, err := time.Parse(domain.DateLayout, s)
	return err
}

func validateCash(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateFraction(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateFloatFraction(s string) error {
	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}
