package gateway

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jvdwalt/dcabot/internal/domain"
)

// BybitGateway implements Exchange on top of the Bybit V5 spot API.
type BybitGateway struct {
	client *bybit.Client
}

func NewBybitGateway(client *bybit.Client) *BybitGateway {
	return &BybitGateway{client: client}
}

func (g *BybitGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	res, err := g.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bybit wallet balance")
	}
	if len(res.Result.List) == 0 {
		return nil, errors.New("bybit returned no wallet balance")
	}

	balances := make([]domain.Balance, 0, len(res.Result.List[0].Coin))
	for _, coin := range res.Result.List[0].Coin {
		available, err := decimal.NewFromString(coin.WalletBalance)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse bybit balance for %s", coin.Coin)
		}
		balances = append(balances, domain.Balance{Currency: string(coin.Coin), Available: available})
	}
	return balances, nil
}

func (g *BybitGateway) CurrencyPairs(ctx context.Context) ([]domain.PairInfo, error) {
	res, err := g.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bybit instruments info")
	}

	pairs := make([]domain.PairInfo, 0, len(res.Result.Spot.List))
	for _, inst := range res.Result.Spot.List {
		minQuote, err := decimal.NewFromString(inst.LotSizeFilter.MinOrderAmt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse bybit minOrderAmt for %s", inst.Symbol)
		}
		minBase, err := decimal.NewFromString(inst.LotSizeFilter.MinOrderQty)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse bybit minOrderQty for %s", inst.Symbol)
		}
		pairs = append(pairs, domain.PairInfo{
			Symbol:         string(inst.Symbol),
			MinQuoteAmount: minQuote,
			MinBaseAmount:  minBase,
		})
	}
	return pairs, nil
}

func (g *BybitGateway) MarketSummaries(ctx context.Context) ([]domain.MarketQuote, error) {
	res, err := g.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bybit tickers")
	}

	quotes := make([]domain.MarketQuote, 0, len(res.Result.Spot.List))
	for _, t := range res.Result.Spot.List {
		ask, err := decimal.NewFromString(t.Ask1Price)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse bybit ask price for %s", t.Symbol)
		}
		quotes = append(quotes, domain.MarketQuote{Symbol: string(t.Symbol), AskPrice: ask})
	}
	return quotes, nil
}

func (g *BybitGateway) OrderStatusByClientID(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderStatus, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	// an order for a past slot is closed, so check history first, then
	// fall back to the open order list.
	history, err := g.client.V5().Order().GetHistoryOrders(bybit.V5GetHistoryOrdersParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      &symbol,
		OrderLinkID: &clientOrderID,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to query bybit order history")
	}
	if len(history.Result.List) > 0 {
		return mapBybitStatus(string(history.Result.List[0].OrderStatus)), nil
	}

	open, err := g.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      &symbol,
		OrderLinkID: &clientOrderID,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to query bybit open orders")
	}
	if len(open.Result.List) > 0 {
		return mapBybitStatus(string(open.Result.List[0].OrderStatus)), nil
	}

	return "", ErrOrderNotFound
}

func mapBybitStatus(status string) domain.OrderStatus {
	switch status {
	case "Filled":
		return domain.OrderStatusFilled
	case "Cancelled", "PartiallyFilledCanceled":
		return domain.OrderStatusCancelled
	case "Rejected":
		return domain.OrderStatusFailed
	default:
		return domain.OrderStatus(status)
	}
}

func (g *BybitGateway) PlaceLimitBuy(ctx context.Context, order domain.LimitBuyOrder) (string, error) {
	price := order.Price.String()

	// PostOnly is Bybit's reprice-free equivalent of a post-only limit
	// order; GTC otherwise.
	tif := bybit.TimeInForce("GTC")
	if order.PostOnlyReprice {
		tif = bybit.TimeInForce("PostOnly")
	}

	res, err := g.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(order.Pair.Symbol()),
		Side:        bybit.SideBuy,
		OrderType:   bybit.OrderTypeLimit,
		Qty:         order.Quantity.String(),
		Price:       &price,
		TimeInForce: &tif,
		OrderLinkID: &order.ClientOrderID,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to place bybit limit buy for %s", order.Pair.Symbol())
	}
	return res.Result.OrderID, nil
}
