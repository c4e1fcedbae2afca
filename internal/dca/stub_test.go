package dca

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jvdwalt/dcabot/internal/domain"
	"github.com/jvdwalt/dcabot/internal/gateway"
)

// stubExchange is a scriptable in-memory Exchange used across the
// package tests.
type stubExchange struct {
	balances []domain.Balance
	pairs    []domain.PairInfo
	quotes   []domain.MarketQuote

	// orderStatuses maps client order id to a reported status; ids not
	// present report gateway.ErrOrderNotFound.
	orderStatuses map[string]domain.OrderStatus
	statusErr     error

	// placeErrs maps pair symbol to a placement failure.
	placeErrs map[string]error
	placed    []domain.LimitBuyOrder

	balancesErr error
	pairsErr    error
	quotesErr   error

	balanceCalls int
	pairCalls    int
	quoteCalls   int
	statusCalls  int
}

func newStubExchange() *stubExchange {
	return &stubExchange{
		orderStatuses: make(map[string]domain.OrderStatus),
		placeErrs:     make(map[string]error),
	}
}

func (s *stubExchange) withFiat(amount int64) *stubExchange {
	s.balances = append(s.balances, domain.Balance{Currency: "ZAR", Available: decimal.NewFromInt(amount)})
	return s
}

func (s *stubExchange) withPair(symbol string, minQuote, minBase string) *stubExchange {
	s.pairs = append(s.pairs, domain.PairInfo{
		Symbol:         symbol,
		MinQuoteAmount: decimal.RequireFromString(minQuote),
		MinBaseAmount:  decimal.RequireFromString(minBase),
	})
	return s
}

func (s *stubExchange) withAsk(symbol, price string) *stubExchange {
	s.quotes = append(s.quotes, domain.MarketQuote{Symbol: symbol, AskPrice: decimal.RequireFromString(price)})
	return s
}

func (s *stubExchange) Balances(ctx context.Context) ([]domain.Balance, error) {
	s.balanceCalls++
	if s.balancesErr != nil {
		return nil, s.balancesErr
	}
	return s.balances, nil
}

func (s *stubExchange) CurrencyPairs(ctx context.Context) ([]domain.PairInfo, error) {
	s.pairCalls++
	if s.pairsErr != nil {
		return nil, s.pairsErr
	}
	return s.pairs, nil
}

func (s *stubExchange) MarketSummaries(ctx context.Context) ([]domain.MarketQuote, error) {
	s.quoteCalls++
	if s.quotesErr != nil {
		return nil, s.quotesErr
	}
	return s.quotes, nil
}

func (s *stubExchange) OrderStatusByClientID(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderStatus, error) {
	s.statusCalls++
	if s.statusErr != nil {
		return "", s.statusErr
	}
	status, ok := s.orderStatuses[clientOrderID]
	if !ok {
		return "", gateway.ErrOrderNotFound
	}
	return status, nil
}

func (s *stubExchange) PlaceLimitBuy(ctx context.Context, order domain.LimitBuyOrder) (string, error) {
	if err := s.placeErrs[order.Pair.Symbol()]; err != nil {
		return "", err
	}
	s.placed = append(s.placed, order)
	// previously placed orders show up as filled for later lookups.
	s.orderStatuses[order.ClientOrderID] = domain.OrderStatusFilled
	return "order-" + order.ClientOrderID, nil
}

var errTransport = errors.New("connection reset")
