// Package clients constructs the exchange API clients used by the
// gateway implementations.
package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/jvdwalt/dcabot/pkg/retrier"
)

const (
	valrBaseURL        = "https://api.valr.com"
	valrRequestTimeout = 30 * time.Second
)

// ErrValrNotFound is returned for 404 responses, notably when an order
// lookup by customer order id finds nothing.
var ErrValrNotFound = errors.New("valr: not found")

// ValrClient is a minimal VALR REST client covering the endpoints the
// DCA agent needs. Read calls are retried with exponential backoff;
// order placement is never retried, the customer order id is the only
// duplicate protection.
type ValrClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
	retrier   *retrier.Retrier
}

// NewValrClient creates a VALR client with the given credentials.
func NewValrClient(apiKey, apiSecret string) *ValrClient {
	return &ValrClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   valrBaseURL,
		http:      &http.Client{Timeout: valrRequestTimeout},
		retrier:   retrier.New(retrier.WithMaxRetries(3)),
	}
}

// WithBaseURL overrides the API host, used by tests.
func (c *ValrClient) WithBaseURL(url string) *ValrClient {
	c.baseURL = url
	return c
}

// ValrBalance mirrors one entry of GET /v1/account/balances.
type ValrBalance struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Reserved  string `json:"reserved"`
	Total     string `json:"total"`
}

// ValrPair mirrors one entry of GET /v1/public/pairs.
type ValrPair struct {
	Symbol         string `json:"symbol"`
	BaseCurrency   string `json:"baseCurrency"`
	QuoteCurrency  string `json:"quoteCurrency"`
	MinBaseAmount  string `json:"minBaseAmount"`
	MinQuoteAmount string `json:"minQuoteAmount"`
	Active         bool   `json:"active"`
}

// ValrMarketSummary mirrors one entry of GET /v1/public/marketsummary.
type ValrMarketSummary struct {
	CurrencyPair string `json:"currencyPair"`
	AskPrice     string `json:"askPrice"`
	BidPrice     string `json:"bidPrice"`
	LastTraded   string `json:"lastTradedPrice"`
}

// ValrOrderStatus mirrors GET /v1/orders/:pair/customerorderid/:id.
type ValrOrderStatus struct {
	OrderID         string `json:"orderId"`
	OrderStatusType string `json:"orderStatusType"`
	CustomerOrderID string `json:"customerOrderId"`
}

// ValrLimitOrderRequest is the body of POST /v1/orders/limit.
type ValrLimitOrderRequest struct {
	Side            string `json:"side"`
	Quantity        string `json:"quantity"`
	Price           string `json:"price"`
	Pair            string `json:"pair"`
	CustomerOrderID string `json:"customerOrderId"`
	PostOnlyReprice bool   `json:"postOnlyReprice"`
	TimeInForce     string `json:"timeInForce"`
}

// ValrOrderResponse is the response to an order placement.
type ValrOrderResponse struct {
	ID string `json:"id"`
}

// GetBalances fetches account balances.
func (c *ValrClient) GetBalances(ctx context.Context) ([]ValrBalance, error) {
	var balances []ValrBalance
	if err := c.getRetried(ctx, "/v1/account/balances", &balances); err != nil {
		return nil, errors.Wrap(err, "failed to fetch valr balances")
	}
	return balances, nil
}

// GetCurrencyPairs fetches currency pair metadata.
func (c *ValrClient) GetCurrencyPairs(ctx context.Context) ([]ValrPair, error) {
	var pairs []ValrPair
	if err := c.getRetried(ctx, "/v1/public/pairs", &pairs); err != nil {
		return nil, errors.Wrap(err, "failed to fetch valr currency pairs")
	}
	return pairs, nil
}

// GetMarketSummary fetches market summaries for all pairs.
func (c *ValrClient) GetMarketSummary(ctx context.Context) ([]ValrMarketSummary, error) {
	var summaries []ValrMarketSummary
	if err := c.getRetried(ctx, "/v1/public/marketsummary", &summaries); err != nil {
		return nil, errors.Wrap(err, "failed to fetch valr market summary")
	}
	return summaries, nil
}

// GetOrderStatusByCustomerID looks up an order by its customer order
// id. Returns ErrValrNotFound when the exchange has no such order.
func (c *ValrClient) GetOrderStatusByCustomerID(ctx context.Context, pairSymbol, customerOrderID string) (ValrOrderStatus, error) {
	var status ValrOrderStatus
	path := fmt.Sprintf("/v1/orders/%s/customerorderid/%s", pairSymbol, customerOrderID)
	// no retry here: the caller treats any failure as "not yet placed"
	// and the exchange enforces the customer order id anyway.
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return ValrOrderStatus{}, err
	}
	return status, nil
}

// PlaceLimitOrder submits a limit order. Never retried.
func (c *ValrClient) PlaceLimitOrder(ctx context.Context, req ValrLimitOrderRequest) (ValrOrderResponse, error) {
	var resp ValrOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders/limit", req, &resp); err != nil {
		return ValrOrderResponse{}, errors.Wrapf(err, "failed to place valr limit order for %s", req.Pair)
	}
	return resp, nil
}

func (c *ValrClient) getRetried(ctx context.Context, path string, out any) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

func (c *ValrClient) do(ctx context.Context, verb, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, verb, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-VALR-API-KEY", c.apiKey)
	req.Header.Set("X-VALR-SIGNATURE", signRequest(c.apiSecret, timestamp, verb, path, payload))
	req.Header.Set("X-VALR-TIMESTAMP", timestamp)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s %s failed", verb, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrValrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("valr API %s %s returned %d: %s", verb, path, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "failed to decode response of %s %s", verb, path)
	}
	return nil
}

// signRequest produces the hex HMAC-SHA512 of
// timestamp + verb + path + body with the API secret.
func signRequest(apiSecret, timestamp, verb, path string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(verb))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
