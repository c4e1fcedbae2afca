package dca

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jvdwalt/dcabot/internal/domain"
)

func newTestEngine(exchange *stubExchange) *Engine {
	guard := NewGuard(exchange, domain.GranularityDaily, zap.NewNop())
	return NewEngine(exchange, guard, zap.NewNop())
}

func allocationRequest(budget, remaining int64) AllocationRequest {
	return AllocationRequest{
		Currency:     "BTC",
		Pair:         domain.NewPair("BTC", "ZAR"),
		PerRunBudget: decimal.NewFromInt(budget),
		Remaining:    decimal.NewFromInt(remaining),
		PairInfo: &domain.PairInfo{
			Symbol:         "BTCZAR",
			MinQuoteAmount: decimal.NewFromInt(10),
			MinBaseAmount:  decimal.RequireFromString("0.0001"),
		},
		Quote: &domain.MarketQuote{Symbol: "BTCZAR", AskPrice: decimal.NewFromInt(1000000)},
		At:    time.Date(2026, time.March, 7, 15, 0, 0, 0, time.UTC),
	}
}

func TestAllocateInsufficientBalanceSkipsBeforeDuplicateCheck(t *testing.T) {
	exchange := newStubExchange()
	engine := newTestEngine(exchange)

	out, err := engine.Allocate(context.Background(), allocationRequest(1000, 500))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkippedInsufficientBalance, out.Outcome)
	assert.Zero(t, exchange.statusCalls, "rejected budgets must not cost a status lookup")
}

func TestAllocateNoMarket(t *testing.T) {
	exchange := newStubExchange()
	engine := newTestEngine(exchange)

	req := allocationRequest(1000, 5000)
	req.PairInfo = nil

	out, err := engine.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkippedNoMarket, out.Outcome)
}

func TestAllocateMissingQuote(t *testing.T) {
	exchange := newStubExchange()
	engine := newTestEngine(exchange)

	req := allocationRequest(1000, 5000)
	req.Quote = nil

	out, err := engine.Allocate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkippedNoMarket, out.Outcome)
	assert.Equal(t, 1, exchange.statusCalls, "the duplicate check runs before the quote check")
}

func TestAllocateNonPositiveAskIsFatal(t *testing.T) {
	exchange := newStubExchange()
	engine := newTestEngine(exchange)

	req := allocationRequest(1000, 5000)
	req.Quote = &domain.MarketQuote{Symbol: "BTCZAR", AskPrice: decimal.Zero}

	_, err := engine.Allocate(context.Background(), req)
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.Empty(t, exchange.placed)
}

func TestAllocateNegativeRemainingIsFatal(t *testing.T) {
	exchange := newStubExchange()
	engine := newTestEngine(exchange)

	req := allocationRequest(1000, 5000)
	req.Remaining = decimal.NewFromInt(-1)

	_, err := engine.Allocate(context.Background(), req)
	require.ErrorIs(t, err, ErrInvariantViolation)
}

func TestAllocatePlacesAtBestAsk(t *testing.T) {
	exchange := newStubExchange()
	engine := newTestEngine(exchange)

	out, err := engine.Allocate(context.Background(), allocationRequest(1000, 5000))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePlaced, out.Outcome)
	assert.Equal(t, "order-BTCZAR-2026-3-7", out.OrderID)

	require.Len(t, exchange.placed, 1)
	assert.True(t, exchange.placed[0].Quantity.Equal(decimal.RequireFromString("0.001")))
}
