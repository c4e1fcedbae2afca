package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOrderID(t *testing.T) {
	pair := Pair{Base: "BTC", Quote: "ZAR"}
	at := time.Date(2026, time.March, 7, 15, 42, 0, 0, time.UTC)

	tests := []struct {
		name        string
		granularity OrderIDGranularity
		expected    string
	}{
		{
			name:        "daily id has no hour component",
			granularity: GranularityDaily,
			expected:    "BTCZAR-2026-3-7",
		},
		{
			name:        "hourly id appends the hour",
			granularity: GranularityHourly,
			expected:    "BTCZAR-2026-3-7-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClientOrderID(pair, at, tt.granularity))
		})
	}
}

func TestClientOrderIDUsesUTC(t *testing.T) {
	pair := Pair{Base: "ETH", Quote: "ZAR"}
	loc, err := time.LoadLocation("Africa/Johannesburg")
	require.NoError(t, err)

	// 01:00 SAST on the 8th is 23:00 UTC on the 7th.
	at := time.Date(2026, time.March, 8, 1, 0, 0, 0, loc)
	assert.Equal(t, "ETHZAR-2026-3-7-23", ClientOrderID(pair, at, GranularityHourly))
}

func TestClientOrderIDDeterministic(t *testing.T) {
	pair := Pair{Base: "BTC", Quote: "ZAR"}
	at := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

	first := ClientOrderID(pair, at, GranularityHourly)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, ClientOrderID(pair, at, GranularityHourly))
	}
}
