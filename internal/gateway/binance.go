package gateway

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jvdwalt/dcabot/internal/domain"
)

// binanceErrCodeOrderNotFound is the API error code Binance returns
// when an order lookup finds nothing.
const binanceErrCodeOrderNotFound = -2013

// BinanceGateway implements Exchange on top of the Binance spot API.
type BinanceGateway struct {
	client *binance.Client
}

func NewBinanceGateway(client *binance.Client) *BinanceGateway {
	return &BinanceGateway{client: client}
}

func (g *BinanceGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get binance account")
	}

	balances := make([]domain.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse binance balance for %s", b.Asset)
		}
		balances = append(balances, domain.Balance{Currency: b.Asset, Available: free})
	}
	return balances, nil
}

func (g *BinanceGateway) CurrencyPairs(ctx context.Context) ([]domain.PairInfo, error) {
	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get binance exchange info")
	}

	pairs := make([]domain.PairInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		minQuote, minBase, err := binanceMinimums(s.Filters)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse binance filters for %s", s.Symbol)
		}
		pairs = append(pairs, domain.PairInfo{
			Symbol:         s.Symbol,
			MinQuoteAmount: minQuote,
			MinBaseAmount:  minBase,
		})
	}
	return pairs, nil
}

// binanceMinimums extracts the minimum notional (quote) and minimum
// quantity (base) from a symbol's raw filter list. Binance has renamed
// MIN_NOTIONAL to NOTIONAL, so both spellings are honoured.
func binanceMinimums(filters []map[string]interface{}) (minQuote, minBase decimal.Decimal, err error) {
	for _, f := range filters {
		filterType, _ := f["filterType"].(string)
		switch filterType {
		case "MIN_NOTIONAL", "NOTIONAL":
			raw, _ := f["minNotional"].(string)
			if raw == "" {
				continue
			}
			minQuote, err = decimal.NewFromString(raw)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
		case "LOT_SIZE":
			raw, _ := f["minQty"].(string)
			if raw == "" {
				continue
			}
			minBase, err = decimal.NewFromString(raw)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
		}
	}
	return minQuote, minBase, nil
}

func (g *BinanceGateway) MarketSummaries(ctx context.Context) ([]domain.MarketQuote, error) {
	tickers, err := g.client.NewListBookTickersService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get binance book tickers")
	}

	quotes := make([]domain.MarketQuote, 0, len(tickers))
	for _, t := range tickers {
		ask, err := decimal.NewFromString(t.AskPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse binance ask price for %s", t.Symbol)
		}
		quotes = append(quotes, domain.MarketQuote{Symbol: t.Symbol, AskPrice: ask})
	}
	return quotes, nil
}

func (g *BinanceGateway) OrderStatusByClientID(ctx context.Context, pair domain.Pair, clientOrderID string) (domain.OrderStatus, error) {
	order, err := g.client.NewGetOrderService().
		Symbol(pair.Symbol()).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == binanceErrCodeOrderNotFound {
			return "", ErrOrderNotFound
		}
		return "", errors.Wrap(err, "failed to query binance order status")
	}

	switch order.Status {
	case binance.OrderStatusTypeFilled:
		return domain.OrderStatusFilled, nil
	case binance.OrderStatusTypeCanceled:
		return domain.OrderStatusCancelled, nil
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired:
		return domain.OrderStatusFailed, nil
	default:
		return domain.OrderStatus(order.Status), nil
	}
}

func (g *BinanceGateway) PlaceLimitBuy(ctx context.Context, order domain.LimitBuyOrder) (string, error) {
	svc := g.client.NewCreateOrderService().
		Symbol(order.Pair.Symbol()).
		Side(binance.SideTypeBuy).
		Quantity(order.Quantity.String()).
		Price(order.Price.String()).
		NewClientOrderID(order.ClientOrderID)

	// LIMIT_MAKER is Binance's post-only order type; it rejects an
	// explicit time in force.
	if order.PostOnlyReprice {
		svc = svc.Type(binance.OrderTypeLimitMaker)
	} else {
		svc = svc.Type(binance.OrderTypeLimit).TimeInForce(binance.TimeInForceTypeGTC)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed to place binance limit buy for %s", order.Pair.Symbol())
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}
