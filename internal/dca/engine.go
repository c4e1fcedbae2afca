package dca

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jvdwalt/dcabot/internal/domain"
	"github.com/jvdwalt/dcabot/internal/gateway"
)

// ErrInvariantViolation marks arithmetic that should be unreachable
// when the allocation checks are correct, such as a negative quantity
// or a negative remaining balance. It is fatal, never recovered from.
var ErrInvariantViolation = errors.New("allocation invariant violated")

// AllocationRequest carries everything the engine needs to decide one
// currency. Remaining is the live fiat balance snapshot after earlier
// allocations in the same run.
type AllocationRequest struct {
	Currency     string
	Pair         domain.Pair
	PerRunBudget decimal.Decimal
	Remaining    decimal.Decimal
	// PairInfo is nil when the exchange lists no such market.
	PairInfo *domain.PairInfo
	// Quote is nil when no market summary exists for the pair.
	Quote *domain.MarketQuote
	At    time.Time
}

// Engine is the allocation decision procedure: it validates one
// currency's per-run budget against exchange minimums and available
// balance, converts it to a base quantity at best ask, and either
// places a limit buy or reports a skip reason.
type Engine struct {
	exchange gateway.Exchange
	guard    *Guard
	logger   *zap.Logger
}

func NewEngine(exchange gateway.Exchange, guard *Guard, logger *zap.Logger) *Engine {
	return &Engine{exchange: exchange, guard: guard, logger: logger}
}

// Allocate runs the sequential checks for one currency, short-circuiting
// at the first failure. A non-nil error is returned only for placement
// failures (the outcome is then OutcomePlacementFailed) and invariant
// violations; every ordinary rejection is a skip outcome with nil error.
func (e *Engine) Allocate(ctx context.Context, req AllocationRequest) (domain.RunOutcome, error) {
	out := domain.RunOutcome{
		Currency: req.Currency,
		Pair:     req.Pair,
		Budget:   req.PerRunBudget,
	}

	if req.Remaining.IsNegative() {
		return out, errors.Wrapf(ErrInvariantViolation, "remaining balance %s is negative", req.Remaining.String())
	}

	if req.PairInfo == nil {
		e.logger.Info("order book does not exist", zap.String("pair", req.Pair.Symbol()))
		out.Outcome = domain.OutcomeSkippedNoMarket
		return out, nil
	}

	if req.Remaining.LessThan(req.PerRunBudget) {
		e.logger.Info("insufficient balance",
			zap.String("remaining", req.Remaining.String()),
			zap.String("budget", req.PerRunBudget.String()),
			zap.String("currency", req.Currency))
		out.Outcome = domain.OutcomeSkippedInsufficientBalance
		return out, nil
	}

	if req.PerRunBudget.LessThan(req.PairInfo.MinQuoteAmount) {
		e.logger.Info("budget below minimum quote amount",
			zap.String("budget", req.PerRunBudget.String()),
			zap.String("min_quote", req.PairInfo.MinQuoteAmount.String()),
			zap.String("pair", req.Pair.Symbol()))
		out.Outcome = domain.OutcomeSkippedBelowMinimumQuote
		return out, nil
	}

	if e.guard.AlreadyPlaced(ctx, req.Pair, req.At) {
		e.logger.Info("order for this slot already exists",
			zap.String("client_order_id", e.guard.ClientOrderID(req.Pair, req.At)))
		out.Outcome = domain.OutcomeSkippedDuplicateOrder
		return out, nil
	}

	if req.Quote == nil {
		e.logger.Info("no market summary found", zap.String("pair", req.Pair.Symbol()))
		out.Outcome = domain.OutcomeSkippedNoMarket
		return out, nil
	}

	if !req.Quote.AskPrice.IsPositive() {
		return out, errors.Wrapf(ErrInvariantViolation, "ask price %s for %s is not positive", req.Quote.AskPrice.String(), req.Pair.Symbol())
	}

	quantity := req.PerRunBudget.Div(req.Quote.AskPrice)
	if quantity.IsNegative() {
		return out, errors.Wrapf(ErrInvariantViolation, "computed quantity %s is negative", quantity.String())
	}

	if quantity.LessThan(req.PairInfo.MinBaseAmount) {
		e.logger.Info("quantity below minimum base amount",
			zap.String("quantity", quantity.String()),
			zap.String("min_base", req.PairInfo.MinBaseAmount.String()),
			zap.String("pair", req.Pair.Symbol()))
		out.Outcome = domain.OutcomeSkippedBelowMinimumBase
		return out, nil
	}

	clientOrderID := e.guard.ClientOrderID(req.Pair, req.At)
	e.logger.Info("placing limit post-only order",
		zap.String("pair", req.Pair.Symbol()),
		zap.String("quantity", quantity.String()),
		zap.String("price", req.Quote.AskPrice.String()),
		zap.String("client_order_id", clientOrderID))

	orderID, err := e.exchange.PlaceLimitBuy(ctx, domain.LimitBuyOrder{
		Pair:            req.Pair,
		Quantity:        quantity,
		Price:           req.Quote.AskPrice,
		ClientOrderID:   clientOrderID,
		PostOnlyReprice: true,
		TimeInForce:     domain.TimeInForceGTC,
	})
	if err != nil {
		out.Outcome = domain.OutcomePlacementFailed
		return out, errors.Wrapf(err, "order placement failed for %s", req.Pair.Symbol())
	}

	out.Outcome = domain.OutcomePlaced
	out.OrderID = orderID
	return out, nil
}
