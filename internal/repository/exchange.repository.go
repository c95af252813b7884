package repository

import (
	"context"
	"fmt"
	"tradechat/internal/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=exchange.repository.go -destination=mocks/exchange.go

// ExchangeRepository is the boundary to the spot exchange. Prices and
// balances are quoted in the exchange's settlement currency; order
// quantity is in the base asset.
type ExchangeRepository interface {
	GetPrice(ctx context.Context, pair string) (decimal.Decimal, error)
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	GetAllBalances(ctx context.Context) (map[string]decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error)
}

type PlaceOrderRequest struct {
	Pair     string
	Side     domain.OrderSide
	Quantity decimal.Decimal
}

func (r PlaceOrderRequest) isValid() error {
	if r.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("quantity is <= 0, order of |%s %s| not sent", r.Quantity.String(), r.Side)
	}
	return nil
}

type OrderResult struct {
	OrderID        string
	FilledQuantity decimal.Decimal
	AvgPrice       decimal.Decimal
}
