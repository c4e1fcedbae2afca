package domain

import "github.com/shopspring/decimal"

// PairInfo is exchange-imposed order size metadata for one market,
// refreshed on every run.
type PairInfo struct {
	Symbol         string
	MinQuoteAmount decimal.Decimal
	MinBaseAmount  decimal.Decimal
}

// MarketQuote is the best ask for one market at fetch time.
type MarketQuote struct {
	Symbol   string
	AskPrice decimal.Decimal
}

// Balance is the available amount of one currency on the account.
type Balance struct {
	Currency  string
	Available decimal.Decimal
}

// OrderStatus is the exchange-reported state of an order looked up
// by client order id.
type OrderStatus string

const (
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusActive    OrderStatus = "ACTIVE"
)

// TimeInForce is passed through verbatim to the exchange.
type TimeInForce string

const TimeInForceGTC TimeInForce = "GTC"

// LimitBuyOrder is a limit buy instruction for the exchange gateway.
type LimitBuyOrder struct {
	Pair            Pair
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	ClientOrderID   string
	PostOnlyReprice bool
	TimeInForce     TimeInForce
}
