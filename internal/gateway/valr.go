package gateway

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jvdwalt/dcabot/internal/clients"
	"github.com/jvdwalt/dcabot/internal/domain"
)

// ValrGateway implements Exchange on top of the VALR REST API.
type ValrGateway struct {
	client *clients.ValrClient
}

func NewValrGateway(client *clients.ValrClient) *ValrGateway {
	return &ValrGateway{client: client}
}

func (g *ValrGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	raw, err := g.client.GetBalances(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]domain.Balance, 0, len(raw))
	for _, b := range raw {
		available, err := decimal.NewFromString(b.Available)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse available balance %q for %s", b.Available, b.Currency)
		}
		balances = append(balances, domain.Balance{Currency: b.Currency, Available: available})
	}
	return balances, nil
}

func (g *ValrGateway) CurrencyPairs(ctx context.Context) ([]domain.PairInfo, error) {
	raw, err := g.client.GetCurrencyPairs(ctx)
	if err != nil {
		return nil, err
	}

	pairs := make([]domain.PairInfo, 0, len(raw))
	for _, p := range raw {
		minQuote, err := decimal.NewFromString(p.MinQuoteAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse minQuoteAmount %q for %s", p.MinQuoteAmount, p.Symbol)
		}
		minBase, err := decimal.NewFromString(p.MinBaseAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse minBaseAmount %q for %s", p.MinBaseAmount, p.Symbol)
		}
		pairs = append(pairs, domain.PairInfo{
			Symbol:         p.Symbol,
			MinQuoteAmount: minQuote,
			MinBaseAmount:  minBase,
		})
	}
	return pairs, nil
}

func (g *ValrGateway) MarketSummaries(ctx context.Context) ([]domain.MarketQuote, error) {
	raw, err := g.client.GetMarketSummary(ctx)
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.MarketQuote, 0, len(raw))
	for _, s := range raw {
		ask, err := decimal.NewFromString(s.AskPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse askPrice %q for %s", s.AskPrice, s.CurrencyPair)
		}
		quotes = append(quotes, domain.MarketQuote{Symbol: s.CurrencyPair, AskPrice: ask})
	}
	return quotes, nil
}

func (g *ValrGateway) OrderStatusByClientID(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderStatus, error) {
	status, err := g.client.GetOrderStatusByCustomerID(ctx, pair.Symbol(), clientOrderID)
	if err != nil {
		if errors.Is(err, clients.ErrValrNotFound) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	return domain.OrderStatus(status.OrderStatusType), nil
}

func (g *ValrGateway) PlaceLimitBuy(ctx context.Context, order domain.LimitBuyOrder) (string, error) {
	resp, err := g.client.PlaceLimitOrder(ctx, clients.ValrLimitOrderRequest{
		Side:            "BUY",
		Quantity:        order.Quantity.String(),
		Price:           order.Price.String(),
		Pair:            order.Pair.Symbol(),
		CustomerOrderID: order.ClientOrderID,
		PostOnlyReprice: order.PostOnlyReprice,
		TimeInForce:     string(order.TimeInForce),
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}
