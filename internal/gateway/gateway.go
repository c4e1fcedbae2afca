// Package gateway defines the exchange capabilities the DCA engine
// depends on and their per-exchange implementations. All durable state
// (order records) lives on the exchange side.
package gateway

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jvdwalt/dcabot/internal/domain"
)

// ErrOrderNotFound is returned by OrderStatusByClientID when the
// exchange has no order with the given client order id.
var ErrOrderNotFound = errors.New("order not found")

// Exchange is the capability interface the decision engine requires
// from an exchange.
type Exchange interface {
	// Balances returns the available balance per currency.
	Balances(ctx context.Context) ([]domain.Balance, error)
	// CurrencyPairs returns order size metadata for all markets.
	CurrencyPairs(ctx context.Context) ([]domain.PairInfo, error)
	// MarketSummaries returns the best ask per market.
	MarketSummaries(ctx context.Context) ([]domain.MarketQuote, error)
	// OrderStatusByClientID looks up an order by its client order id.
	OrderStatusByClientID(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderStatus, error)
	// PlaceLimitBuy submits a limit buy order and returns the
	// exchange-assigned order id.
	PlaceLimitBuy(ctx context.Context, order domain.LimitBuyOrder) (string, error)
}
