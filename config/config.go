// Package config resolves the DCA policy from the environment or a
// yaml file. The policy is an immutable snapshot: the orchestrator
// re-resolves it at the start of every run so a warm process picks up
// environment changes without a restart.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jvdwalt/dcabot/internal/domain"
)

const (
	// valrCredentialLength is the exact length VALR API keys and
	// secrets must have.
	valrCredentialLength = 64

	defaultExecutionHour = 15
	defaultFiat          = "ZAR"
	defaultPlatform      = "valr"
	defaultListenAddr    = ":8900"
)

// Configuration errors. The orchestrator aborts a run without side
// effects when Resolve returns any of these.
var (
	ErrMissingCredentials     = errors.New("API_KEY and API_SECRET environment variables are required")
	ErrInvalidCredentialShape = errors.New("invalid credentials: API_KEY and API_SECRET must be 64 characters")
	ErrCurrencyBudgetMismatch = errors.New("DCA_CURRENCIES and DCA_AMOUNTS lengths do not match")
	ErrNoCurrenciesConfigured = errors.New("no DCA currencies configured")
)

// Policy is the resolved DCA configuration for one invocation.
type Policy struct {
	Platform  string
	APIKey    string
	APISecret string
	// Fiat is the quote currency paying for every purchase.
	Fiat string
	// ExecutionHours are the UTC hours during which a run may execute,
	// sorted and deduplicated.
	ExecutionHours []int
	// Currencies is the processing order; it is significant for
	// balance-tracking determinism.
	Currencies []string
	// Budgets maps each currency to its total daily quote allocation.
	Budgets map[string]decimal.Decimal
	// Granularity controls client order id uniqueness (per day or per
	// execution hour).
	Granularity domain.OrderIDGranularity
	// TriggerSecret guards the manual run endpoint. Empty disables it.
	TriggerSecret string
	ListenAddr    string
}

// ExecutionsPerDay returns how many times a full execution-hours cycle
// fires in one day. It divides each daily budget into per-run shares.
func (p Policy) ExecutionsPerDay() int {
	return len(p.ExecutionHours)
}

// HourConfigured reports whether hour (UTC) is an execution hour.
func (p Policy) HourConfigured(hour int) bool {
	for _, h := range p.ExecutionHours {
		if h == hour {
			return true
		}
	}
	return false
}

// Pair returns the market pair for one configured currency.
func (p Policy) Pair(currency string) domain.Pair {
	return domain.NewPair(currency, p.Fiat)
}

// Resolve builds a Policy from the given environment lookup. It fails
// fast on missing or malformed credentials and on a currency/budget
// count mismatch.
func Resolve(getenv func(string) string) (Policy, error) {
	apiKey := getenv("API_KEY")
	apiSecret := getenv("API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return Policy{}, ErrMissingCredentials
	}

	platform := getenv("DCA_PLATFORM")
	if platform == "" {
		platform = defaultPlatform
	}

	// VALR rejects keys of any other length, so fail before the first
	// signed request does.
	if platform == defaultPlatform && (len(apiKey) != valrCredentialLength || len(apiSecret) != valrCredentialLength) {
		return Policy{}, errors.Wrapf(ErrInvalidCredentialShape, "got key length %d, secret length %d", len(apiKey), len(apiSecret))
	}

	hours, err := parseHours(getenv("DCA_EXECUTION_HOURS"))
	if err != nil {
		return Policy{}, errors.Wrap(err, "invalid DCA_EXECUTION_HOURS")
	}

	currencies := splitList(getenv("DCA_CURRENCIES"))
	amounts := splitList(getenv("DCA_AMOUNTS"))
	if len(currencies) != len(amounts) {
		return Policy{}, errors.Wrapf(ErrCurrencyBudgetMismatch, "currencies(%d) amounts(%d)", len(currencies), len(amounts))
	}
	if len(currencies) == 0 {
		return Policy{}, ErrNoCurrenciesConfigured
	}

	budgets := make(map[string]decimal.Decimal, len(currencies))
	for i, cur := range currencies {
		amount, err := decimal.NewFromString(amounts[i])
		if err != nil {
			return Policy{}, errors.Wrapf(err, "invalid DCA_AMOUNTS entry %q for currency %s", amounts[i], cur)
		}
		if amount.IsNegative() {
			return Policy{}, errors.Errorf("negative DCA amount %s for currency %s", amount.String(), cur)
		}
		budgets[strings.ToUpper(cur)] = amount
	}

	for i := range currencies {
		currencies[i] = strings.ToUpper(currencies[i])
	}

	granularity, err := resolveGranularity(getenv("DCA_ORDER_ID_GRANULARITY"), len(hours))
	if err != nil {
		return Policy{}, err
	}

	fiat := strings.ToUpper(strings.TrimSpace(getenv("DCA_FIAT")))
	if fiat == "" {
		fiat = defaultFiat
	}

	listenAddr := getenv("DCA_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	return Policy{
		Platform:       platform,
		APIKey:         apiKey,
		APISecret:      apiSecret,
		Fiat:           fiat,
		ExecutionHours: hours,
		Currencies:     currencies,
		Budgets:        budgets,
		Granularity:    granularity,
		TriggerSecret:  getenv("DCA_TRIGGER_SECRET"),
		ListenAddr:     listenAddr,
	}, nil
}

// FromEnv resolves the policy from the process environment.
func FromEnv() (Policy, error) {
	return Resolve(os.Getenv)
}

// PolicyTmp is the yaml representation of a policy, shared with the
// setup wizard that generates config files.
type PolicyTmp struct {
	Platform       string   `yaml:"platform,omitempty"`
	APIKey         string   `yaml:"api_key"`
	APISecret      string   `yaml:"api_secret"`
	Fiat           string   `yaml:"fiat,omitempty"`
	ExecutionHours string   `yaml:"execution_hours,omitempty"`
	Currencies     []string `yaml:"currencies"`
	Amounts        []string `yaml:"amounts"`
	Granularity    string   `yaml:"order_id_granularity,omitempty"`
	TriggerSecret  string   `yaml:"trigger_secret,omitempty"`
	ListenAddr     string   `yaml:"listen_addr,omitempty"`
}

// FromYaml resolves the policy from a yaml file. The file carries the
// same fields as the environment; Resolve performs all validation.
func FromYaml(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.Wrapf(err, "failed to read config file %s", path)
	}

	var y PolicyTmp
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return Policy{}, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	env := map[string]string{
		"DCA_PLATFORM":             y.Platform,
		"API_KEY":                  y.APIKey,
		"API_SECRET":               y.APISecret,
		"DCA_FIAT":                 y.Fiat,
		"DCA_EXECUTION_HOURS":      y.ExecutionHours,
		"DCA_CURRENCIES":           strings.Join(y.Currencies, ","),
		"DCA_AMOUNTS":              strings.Join(y.Amounts, ","),
		"DCA_ORDER_ID_GRANULARITY": y.Granularity,
		"DCA_TRIGGER_SECRET":       y.TriggerSecret,
		"DCA_LISTEN_ADDR":          y.ListenAddr,
	}
	return Resolve(func(key string) string { return env[key] })
}

// parseHours parses a comma-separated hour list. Duplicates collapse
// to a set; empty elements are a parse error rather than being
// silently dropped. An empty input defaults to a single hour.
func parseHours(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return []int{defaultExecutionHour}, nil
	}

	seen := make(map[int]struct{})
	var hours []int
	for _, part := range strings.Split(raw, ",") {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid hour %q", part)
		}
		if h < 0 || h > 23 {
			return nil, errors.Errorf("hour %d out of range [0,23]", h)
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours, nil
}

func resolveGranularity(raw string, executionHours int) (domain.OrderIDGranularity, error) {
	if raw == "" {
		// One execution per day means a single daily idempotency slot;
		// several execution hours each get their own slot.
		if executionHours > 1 {
			return domain.GranularityHourly, nil
		}
		return domain.GranularityDaily, nil
	}

	g := domain.OrderIDGranularity(strings.ToLower(strings.TrimSpace(raw)))
	if !g.Valid() {
		return "", errors.Errorf("invalid DCA_ORDER_ID_GRANULARITY %q, want daily or hourly", raw)
	}
	return g, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
