package repository

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const gateIoDefaultBaseUrl = "https://api.gateio.ws"

func NewGateIoRepository(apiKey, apiSecret, baseUrl string) ExchangeRepository {
	if baseUrl == "" {
		baseUrl = gateIoDefaultBaseUrl
	}
	client := resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return gateIoRepositoryHandler{
		Client:    client,
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
}

type gateIoRepositoryHandler struct {
	Client    *resty.Client
	ApiKey    string
	ApiSecret string
}

type gateIoTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
}

type gateIoAccount struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

type gateIoOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	FilledAmount string `json:"filled_amount"`
	AvgDealPrice string `json:"avg_deal_price"`
}

func (h gateIoRepositoryHandler) GetPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	var tickers []gateIoTicker
	resp, err := h.Client.R().
		SetContext(ctx).
		SetQueryParam("currency_pair", pair).
		SetResult(&tickers).
		Get("/api/v4/spot/tickers")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch ticker for %s: %w", pair, err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("failed to fetch ticker for %s: status %d: %s", pair, resp.StatusCode(), resp.String())
	}
	if len(tickers) == 0 {
		return decimal.Zero, fmt.Errorf("pair %s not found on exchange", pair)
	}

	price, err := decimal.NewFromString(tickers[0].Last)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse last price %q for %s: %w", tickers[0].Last, pair, err)
	}
	if price.IsZero() {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: got 0 price", pair)
	}

	return price, nil
}

func (h gateIoRepositoryHandler) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	var accounts []gateIoAccount
	query := "currency=" + currency
	resp, err := h.signedRequest(ctx, "GET", "/api/v4/spot/accounts", query, "").
		SetQueryParam("currency", currency).
		SetResult(&accounts).
		Get("/api/v4/spot/accounts")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch balance for %s: %w", currency, err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("failed to fetch balance for %s: status %d: %s", currency, resp.StatusCode(), resp.String())
	}
	if len(accounts) == 0 {
		return decimal.Zero, nil
	}

	available, err := decimal.NewFromString(accounts[0].Available)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance %q for %s: %w", accounts[0].Available, currency, err)
	}

	return available, nil
}

func (h gateIoRepositoryHandler) GetAllBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	var accounts []gateIoAccount
	resp, err := h.signedRequest(ctx, "GET", "/api/v4/spot/accounts", "", "").
		SetResult(&accounts).
		Get("/api/v4/spot/accounts")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch balances: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := map[string]decimal.Decimal{}
	for _, account := range accounts {
		available, err := decimal.NewFromString(account.Available)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance %q for %s: %w", account.Available, account.Currency, err)
		}
		if available.GreaterThan(decimal.Zero) {
			out[account.Currency] = available
		}
	}

	return out, nil
}

func (h gateIoRepositoryHandler) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	if err := req.isValid(); err != nil {
		return nil, fmt.Errorf("invalid order for %s: %w", req.Pair, err)
	}

	body := fmt.Sprintf(
		`{"currency_pair":%q,"side":%q,"type":"market","time_in_force":"ioc","amount":%q}`,
		req.Pair, string(req.Side), req.Quantity.String(),
	)

	var order gateIoOrder
	resp, err := h.signedRequest(ctx, "POST", "/api/v4/spot/orders", "", body).
		SetBody(body).
		SetResult(&order).
		Post("/api/v4/spot/orders")
	if err != nil {
		return nil, fmt.Errorf("order %s %s %s failed: %w", req.Side, req.Pair, req.Quantity.String(), err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("order %s %s %s rejected: status %d: %s", req.Side, req.Pair, req.Quantity.String(), resp.StatusCode(), resp.String())
	}

	filled, err := decimal.NewFromString(order.Amount)
	if err != nil {
		filled = req.Quantity
	}
	avgPrice := decimal.Zero
	if order.AvgDealPrice != "" {
		if p, err := decimal.NewFromString(order.AvgDealPrice); err == nil {
			avgPrice = p
		}
	}

	return &OrderResult{
		OrderID:        order.ID,
		FilledQuantity: filled,
		AvgPrice:       avgPrice,
	}, nil
}

// signedRequest prepares a request with Gate.io v4 APIv4 HMAC headers.
// Signature string is METHOD\nPATH\nQUERY\nSHA512(body)\nTIMESTAMP,
// signed with HMAC-SHA512.
func (h gateIoRepositoryHandler) signedRequest(ctx context.Context, method, path, query, body string) *resty.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	bodyHash := sha512.Sum512([]byte(body))
	payload := fmt.Sprintf("%s\n%s\n%s\n%s\n%s", method, path, query, hex.EncodeToString(bodyHash[:]), ts)

	mac := hmac.New(sha512.New, []byte(h.ApiSecret))
	mac.Write([]byte(payload))

	return h.Client.R().
		SetContext(ctx).
		SetHeader("KEY", h.ApiKey).
		SetHeader("Timestamp", ts).
		SetHeader("SIGN", hex.EncodeToString(mac.Sum(nil)))
}
