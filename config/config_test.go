package config

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvdwalt/dcabot/internal/domain"
)

func envLookup(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func validEnv() map[string]string {
	key := make([]byte, 64)
	for i := range key {
		key[i] = 'a'
	}
	return map[string]string{
		"API_KEY":        string(key),
		"API_SECRET":     string(key),
		"DCA_CURRENCIES": "BTC,ETH",
		"DCA_AMOUNTS":    "1000,500",
	}
}

func TestResolveValid(t *testing.T) {
	policy, err := Resolve(envLookup(validEnv()))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, policy.Currencies)
	assert.Equal(t, "ZAR", policy.Fiat)
	assert.Equal(t, []int{15}, policy.ExecutionHours)
	assert.Equal(t, domain.GranularityDaily, policy.Granularity)
	assert.True(t, policy.Budgets["BTC"].Equal(decimal.NewFromInt(1000)))
	assert.True(t, policy.Budgets["ETH"].Equal(decimal.NewFromInt(500)))
}

func TestResolveMissingCredentials(t *testing.T) {
	env := validEnv()
	env["API_SECRET"] = ""

	_, err := Resolve(envLookup(env))
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestResolveInvalidCredentialShape(t *testing.T) {
	env := validEnv()
	env["API_KEY"] = "too-short"

	_, err := Resolve(envLookup(env))
	require.ErrorIs(t, err, ErrInvalidCredentialShape)
}

func TestResolveCredentialShapeSkippedForOtherPlatforms(t *testing.T) {
	env := validEnv()
	env["API_KEY"] = "short-binance-key"
	env["API_SECRET"] = "short-binance-secret"
	env["DCA_PLATFORM"] = "binance"

	_, err := Resolve(envLookup(env))
	require.NoError(t, err)
}

func TestResolveCurrencyBudgetMismatch(t *testing.T) {
	env := validEnv()
	env["DCA_AMOUNTS"] = "1000"

	_, err := Resolve(envLookup(env))
	require.ErrorIs(t, err, ErrCurrencyBudgetMismatch)
}

func TestResolveExecutionHours(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []int
		wantErr  bool
	}{
		{name: "default when unset", raw: "", expected: []int{15}},
		{name: "whitespace tolerated", raw: " 3, 9 ,21 ", expected: []int{3, 9, 21}},
		{name: "duplicates collapse", raw: "9,9,21", expected: []int{9, 21}},
		{name: "out of range rejected", raw: "24", wantErr: true},
		{name: "empty element rejected", raw: "9,,21", wantErr: true},
		{name: "non-numeric rejected", raw: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnv()
			env["DCA_EXECUTION_HOURS"] = tt.raw

			policy, err := Resolve(envLookup(env))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, policy.ExecutionHours)
		})
	}
}

func TestResolveGranularity(t *testing.T) {
	tests := []struct {
		name     string
		hours    string
		override string
		expected domain.OrderIDGranularity
	}{
		{name: "single hour defaults daily", hours: "15", expected: domain.GranularityDaily},
		{name: "multiple hours default hourly", hours: "9,21", expected: domain.GranularityHourly},
		{name: "explicit override wins", hours: "9,21", override: "daily", expected: domain.GranularityDaily},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnv()
			env["DCA_EXECUTION_HOURS"] = tt.hours
			env["DCA_ORDER_ID_GRANULARITY"] = tt.override

			policy, err := Resolve(envLookup(env))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, policy.Granularity)
		})
	}
}

func TestResolveNegativeBudgetRejected(t *testing.T) {
	env := validEnv()
	env["DCA_AMOUNTS"] = "1000,-5"

	_, err := Resolve(envLookup(env))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrCurrencyBudgetMismatch))
}
