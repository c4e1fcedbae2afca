package dca

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/jvdwalt/dcabot/internal/domain"
)

func TestGuardClientOrderID(t *testing.T) {
	pair := domain.NewPair("BTC", "ZAR")
	at := time.Date(2026, time.March, 7, 15, 30, 0, 0, time.UTC)

	daily := NewGuard(newStubExchange(), domain.GranularityDaily, zap.NewNop())
	assert.Equal(t, "BTCZAR-2026-3-7", daily.ClientOrderID(pair, at))

	hourly := NewGuard(newStubExchange(), domain.GranularityHourly, zap.NewNop())
	assert.Equal(t, "BTCZAR-2026-3-7-15", hourly.ClientOrderID(pair, at))
}

func TestGuardAlreadyPlaced(t *testing.T) {
	pair := domain.NewPair("BTC", "ZAR")
	at := time.Date(2026, time.March, 7, 15, 0, 0, 0, time.UTC)
	id := domain.ClientOrderID(pair, at, domain.GranularityDaily)

	tests := []struct {
		name   string
		status domain.OrderStatus
		want   bool
	}{
		{name: "filled blocks re-submission", status: domain.OrderStatusFilled, want: true},
		{name: "failed permits retry", status: domain.OrderStatusFailed, want: false},
		{name: "cancelled permits retry", status: domain.OrderStatusCancelled, want: false},
		{name: "active assumed placed", status: domain.OrderStatusActive, want: true},
		{name: "unknown status assumed placed", status: domain.OrderStatus("Suspended"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exchange := newStubExchange()
			exchange.orderStatuses[id] = tt.status

			guard := NewGuard(exchange, domain.GranularityDaily, zap.NewNop())
			assert.Equal(t, tt.want, guard.AlreadyPlaced(context.Background(), pair, at))
		})
	}
}

func TestGuardNotFoundPermitsPlacement(t *testing.T) {
	guard := NewGuard(newStubExchange(), domain.GranularityDaily, zap.NewNop())

	placed := guard.AlreadyPlaced(context.Background(), domain.NewPair("BTC", "ZAR"), time.Now().UTC())
	assert.False(t, placed)
}

func TestGuardLookupFailureFailsOpen(t *testing.T) {
	exchange := newStubExchange()
	exchange.statusErr = errTransport

	guard := NewGuard(exchange, domain.GranularityDaily, zap.NewNop())

	placed := guard.AlreadyPlaced(context.Background(), domain.NewPair("BTC", "ZAR"), time.Now().UTC())
	assert.False(t, placed, "a lookup fault must not block purchasing")
}
