package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// NewAlpacaRepository returns an ExchangeRepository backed by Alpaca's
// crypto API. Pointing it at the paper endpoint gives a sandbox
// gateway with real market prices and no real fills.
func NewAlpacaRepository(apiKey, apiSecret, endpoint string) ExchangeRepository {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		BaseURL:    endpoint,
		RetryLimit: 3,
	})

	mdClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return alpacaRepositoryHandler{
		Client:   client,
		MdClient: mdClient,
	}
}

type alpacaRepositoryHandler struct {
	Client   *alpaca.Client
	MdClient *marketdata.Client
}

// alpaca quotes all crypto against USD, so BTC_USDT maps to BTC/USD
func alpacaCryptoSymbol(pair string) string {
	base := pair
	if i := strings.Index(pair, "_"); i > 0 {
		base = pair[:i]
	}
	return base + "/USD"
}

func (h alpacaRepositoryHandler) GetPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	symbol := alpacaCryptoSymbol(pair)
	quote, err := h.MdClient.GetLatestCryptoQuote(symbol, marketdata.GetLatestCryptoQuoteRequest{})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	price := decimal.NewFromFloat(quote.BidPrice)
	if price.IsZero() {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: got 0 price", symbol)
	}

	return price, nil
}

func (h alpacaRepositoryHandler) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	balances, err := h.GetAllBalances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if qty, ok := balances[strings.ToUpper(currency)]; ok {
		return qty, nil
	}
	return decimal.Zero, nil
}

func (h alpacaRepositoryHandler) GetAllBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	positions, err := h.Client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	out := map[string]decimal.Decimal{}
	for _, position := range positions {
		base := strings.TrimSuffix(strings.ReplaceAll(position.Symbol, "/", ""), "USD")
		if base == "" {
			continue
		}
		if position.Qty.GreaterThan(decimal.Zero) {
			out[strings.ToUpper(base)] = position.Qty
		}
	}

	return out, nil
}

func (h alpacaRepositoryHandler) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	if err := req.isValid(); err != nil {
		return nil, fmt.Errorf("invalid order for %s: %w", req.Pair, err)
	}

	order, err := h.Client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      alpacaCryptoSymbol(req.Pair),
		Qty:         &req.Quantity,
		Side:        alpaca.Side(req.Side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.GTC,
	})
	if err != nil {
		return nil, fmt.Errorf("order %s %s %s failed: %w", req.Side, req.Pair, req.Quantity.String(), err)
	}

	avgPrice := decimal.Zero
	if order.FilledAvgPrice != nil {
		avgPrice = *order.FilledAvgPrice
	}

	return &OrderResult{
		OrderID:        order.ID,
		FilledQuantity: order.FilledQty,
		AvgPrice:       avgPrice,
	}, nil
}
