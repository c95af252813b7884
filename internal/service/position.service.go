package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"tradechat/internal/domain"
	"tradechat/internal/logger"
	"tradechat/internal/repository"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// PositionService values current holdings in the quote currency.
// Snapshots are cheap and always taken fresh - the tracker never
// caches across calls that may have moved balances.
type PositionService interface {
	Snapshot(ctx context.Context, symbols []string) (*domain.PositionSnapshot, error)
	Summary(ctx context.Context) (string, error)
}

func NewPositionService(
	exchangeRepository repository.ExchangeRepository,
	priceService PriceService,
	quoteAsset string,
) PositionService {
	return positionServiceHandler{
		ExchangeRepository: exchangeRepository,
		PriceService:       priceService,
		QuoteAsset:         quoteAsset,
	}
}

type positionServiceHandler struct {
	ExchangeRepository repository.ExchangeRepository
	PriceService       PriceService
	QuoteAsset         string
}

// PairFor appends the exchange's settlement suffix to a base asset,
// e.g. BTC -> BTC_USDT.
func PairFor(symbol, quoteAsset string) string {
	symbol = strings.ToUpper(symbol)
	suffix := "_" + quoteAsset
	if strings.HasSuffix(symbol, suffix) {
		return symbol
	}
	return symbol + suffix
}

// Snapshot values each requested symbol. A symbol whose balance or
// price can't be fetched is valued at zero and logged - a partial
// snapshot is still a valid snapshot.
func (h positionServiceHandler) Snapshot(ctx context.Context, symbols []string) (*domain.PositionSnapshot, error) {
	log := logger.FromContext(ctx)

	snapshot := &domain.PositionSnapshot{
		PerSymbolValue: map[string]decimal.Decimal{},
		AsOf:           time.Now().UTC(),
	}

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		snapshot.PerSymbolValue[symbol] = decimal.Zero

		balance, err := h.ExchangeRepository.GetBalance(ctx, symbol)
		if err != nil {
			log.Warnw("failed to fetch balance, treating as not held", "symbol", symbol, "error", err)
			continue
		}
		if !balance.GreaterThan(decimal.Zero) {
			continue
		}

		price, err := h.PriceService.Price(ctx, PairFor(symbol, h.QuoteAsset))
		if err != nil {
			log.Warnw("failed to fetch price, treating as not held", "symbol", symbol, "error", err)
			continue
		}

		snapshot.PerSymbolValue[symbol] = balance.Mul(price)
	}

	return snapshot, nil
}

func (h positionServiceHandler) Summary(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx)

	balances, err := h.ExchangeRepository.GetAllBalances(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch balances: %w", err)
	}

	positions := []domain.PositionInfo{}
	for currency, quantity := range balances {
		if currency == h.QuoteAsset || !quantity.GreaterThan(decimal.Zero) {
			continue
		}

		pair := PairFor(currency, h.QuoteAsset)
		price, err := h.PriceService.Price(ctx, pair)
		if err != nil {
			log.Warnw("failed to price holding, skipping from summary", "pair", pair, "error", err)
			continue
		}

		positions = append(positions, domain.PositionInfo{
			Pair:     pair,
			Currency: currency,
			Quantity: quantity,
			Price:    price,
			Value:    quantity.Mul(price),
		})
	}

	if len(positions) == 0 {
		return "No open positions (besides " + h.QuoteAsset + ")", nil
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Value.GreaterThan(positions[j].Value)
	})

	values := make([]float64, 0, len(positions))
	for _, p := range positions {
		values = append(values, p.Value.InexactFloat64())
	}
	total, _ := stats.Sum(values)
	mean, _ := stats.Mean(values)
	largest, _ := stats.Max(values)

	lines := []string{
		fmt.Sprintf("Positions: %d coins, total $%.2f (avg $%.2f, largest $%.2f)", len(positions), total, mean, largest),
		"",
	}
	for _, p := range positions {
		lines = append(lines, fmt.Sprintf("- %s: %s ($%s)", p.Pair, p.Quantity.String(), p.Value.StringFixed(2)))
	}

	return strings.Join(lines, "\n"), nil
}
