package service

import (
	"context"
	"fmt"
	"strings"
	"tradechat/internal/logger"
	"tradechat/internal/repository"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// PriceService resolves the current price of a pair. The exchange
// ticker is authoritative; Yahoo is a best-effort fallback so a flaky
// ticker endpoint doesn't zero out an otherwise healthy snapshot.
type PriceService interface {
	Price(ctx context.Context, pair string) (decimal.Decimal, error)
}

func NewPriceService(exchangeRepository repository.ExchangeRepository) PriceService {
	return priceServiceHandler{
		ExchangeRepository: exchangeRepository,
	}
}

type priceServiceHandler struct {
	ExchangeRepository repository.ExchangeRepository
}

func (h priceServiceHandler) Price(ctx context.Context, pair string) (decimal.Decimal, error) {
	log := logger.FromContext(ctx)

	price, err := h.ExchangeRepository.GetPrice(ctx, pair)
	if err == nil {
		return price, nil
	}
	log.Warnw("exchange ticker failed, trying yahoo fallback", "pair", pair, "error", err)

	base := pair
	if i := strings.Index(pair, "_"); i > 0 {
		base = pair[:i]
	}
	q, qErr := quote.Get(base + "-USD")
	if qErr != nil || q == nil {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: %w", pair, err)
	}

	fallback := decimal.NewFromFloat(q.RegularMarketPrice)
	if fallback.IsZero() {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: yahoo fallback returned 0", pair)
	}

	return fallback, nil
}
