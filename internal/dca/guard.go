package dca

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jvdwalt/dcabot/internal/domain"
	"github.com/jvdwalt/dcabot/internal/gateway"
)

// lookupFailureFailOpen is the idempotency lookup policy: a failed or
// not-found status lookup permits placement. A transient lookup fault
// can therefore lead to a duplicate placement attempt, which the
// exchange itself rejects on the client order id. Flipping this to
// fail-closed would halt all purchasing on transient API errors.
const lookupFailureFailOpen = true

// Guard decides whether an order for the current scheduling slot has
// already been placed, using the exchange's order records as the
// system of record.
type Guard struct {
	exchange    gateway.Exchange
	granularity domain.OrderIDGranularity
	logger      *zap.Logger
}

func NewGuard(exchange gateway.Exchange, granularity domain.OrderIDGranularity, logger *zap.Logger) *Guard {
	return &Guard{exchange: exchange, granularity: granularity, logger: logger}
}

// ClientOrderID derives the idempotency key for a pair at time t.
func (g *Guard) ClientOrderID(pair domain.Pair, t time.Time) string {
	return domain.ClientOrderID(pair, t, g.granularity)
}

// AlreadyPlaced reports whether an order with this slot's client order
// id exists in a state that blocks re-submission.
func (g *Guard) AlreadyPlaced(ctx context.Context, pair domain.Pair, t time.Time) bool {
	clientOrderID := g.ClientOrderID(pair, t)

	status, err := g.exchange.OrderStatusByClientID(ctx, pair, clientOrderID)
	if err != nil {
		if !errors.Is(err, gateway.ErrOrderNotFound) {
			g.logger.Warn("order status lookup failed, treating as not yet placed",
				zap.String("client_order_id", clientOrderID),
				zap.Error(err))
		}
		return !lookupFailureFailOpen
	}

	switch status {
	case domain.OrderStatusFailed, domain.OrderStatusCancelled:
		return false
	case domain.OrderStatusFilled:
		return true
	default:
		g.logger.Warn("unaccounted for order status, assuming order has already been placed",
			zap.String("client_order_id", clientOrderID),
			zap.String("status", string(status)))
		return true
	}
}
