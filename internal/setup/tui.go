// Package setup provides the interactive terminal wizard that
// generates a yaml policy file.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jvdwalt/dcabot/config"
)

const generatedConfigFile = "config.gen.yaml"

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

func header(step string) {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("DCA SETUP WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the
// resulting policy to config.gen.yaml.
func RunTUI() error {
	var (
		platform      string
		apiKey        string
		apiSecret     string
		fiat          string
		currenciesStr string
		amountsStr    string
		hoursStr      string
		granularity   string
		triggerSecret string
		confirm       bool
	)

	// defaults
	fiat = "ZAR"
	hoursStr = "15"
	granularity = "daily"

	header("STEP 1: EXCHANGE")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Recurring purchases, hands off the wheel.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("VALR", "valr"),
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 2: CREDENTIALS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Value(&apiKey).
				EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("API Secret").
				Value(&apiSecret).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 3: BASKET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Fiat Currency").
				Description("Quote currency paying for every purchase (e.g. ZAR)").
				Value(&fiat),
			huh.NewInput().
				Title("Currencies").
				Description("Comma-separated asset symbols, order is processing order (e.g. BTC,ETH)").
				Value(&currenciesStr).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("at least one currency is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Daily Amounts").
				Description("Comma-separated fiat budgets, one per currency (e.g. 1000,500)").
				Value(&amountsStr).
				Validate(validateAmounts),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 4: SCHEDULE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Execution Hours (UTC)").
				Description("Comma-separated hours 0-23; the daily amount is split across them").
				Value(&hoursStr).
				Validate(validateHours),
			huh.NewSelect[string]().
				Title("Order Id Granularity").
				Description("Hourly makes each execution hour independently idempotent").
				Options(
					huh.NewOption("Daily", "daily"),
					huh.NewOption("Hourly", "hourly"),
				).
				Value(&granularity),
			huh.NewInput().
				Title("Manual Trigger Secret").
				Description("Leave empty to disable the manual trigger endpoint").
				Value(&triggerSecret).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	header("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nFiat: %s\nCurrencies: %s\nAmounts: %s\nHours (UTC): %s\nGranularity: %s\n",
		platform, fiat, currenciesStr, amountsStr, hoursStr, granularity,
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

	tmp := config.PolicyTmp{
		Platform:       platform,
		APIKey:         apiKey,
		APISecret:      apiSecret,
		Fiat:           fiat,
		ExecutionHours: hoursStr,
		Currencies:     splitTrimmed(currenciesStr),
		Amounts:        splitTrimmed(amountsStr),
		Granularity:    granularity,
		TriggerSecret:  triggerSecret,
	}

	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(generatedConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nStart with --config %s", generatedConfigFile, generatedConfigFile)))
	return nil
}

func validateAmounts(s string) error {
	for _, part := range splitTrimmed(s) {
		d, err := decimal.NewFromString(part)
		if err != nil {
			return fmt.Errorf("%q is not a valid amount", part)
		}
		if d.IsNegative() {
			return fmt.Errorf("amounts must not be negative")
		}
	}
	return nil
}

func validateHours(s string) error {
	for _, part := range splitTrimmed(s) {
		h, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("%q is not a valid hour", part)
		}
		if h < 0 || h > 23 {
			return fmt.Errorf("hour %d out of range [0,23]", h)
		}
	}
	return nil
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
