package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"tradechat/internal/domain"
	mock_repository "tradechat/internal/repository/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_positionServiceHandler_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("values each symbol at balance times price", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exchange := mock_repository.NewMockExchangeRepository(ctrl)
		handler := NewPositionService(exchange, NewPriceService(exchange), "USDT")

		exchange.EXPECT().GetBalance(gomock.Any(), "BTC").Return(decimal.NewFromFloat(0.5), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil)
		exchange.EXPECT().GetBalance(gomock.Any(), "ETH").Return(decimal.Zero, nil)

		snapshot, err := handler.Snapshot(ctx, []string{"btc", "ETH"})
		require.NoError(t, err)

		require.True(t, snapshot.Value("BTC").Equal(decimal.NewFromInt(50)))
		require.True(t, snapshot.Value("ETH").IsZero())
	})

	t.Run("snapshotting twice without trades yields identical values", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exchange := mock_repository.NewMockExchangeRepository(ctrl)
		handler := NewPositionService(exchange, NewPriceService(exchange), "USDT")

		exchange.EXPECT().GetBalance(gomock.Any(), "BTC").Return(decimal.NewFromInt(1), nil).Times(2)
		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil).Times(2)

		first, err := handler.Snapshot(ctx, []string{"BTC"})
		require.NoError(t, err)
		second, err := handler.Snapshot(ctx, []string{"BTC"})
		require.NoError(t, err)

		require.True(t, first.Value("BTC").Equal(second.Value("BTC")))
	})

	t.Run("a symbol that fails to price is valued at zero", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exchange := mock_repository.NewMockExchangeRepository(ctrl)
		handler := NewPositionService(exchange, stubPriceService{err: fmt.Errorf("pair not listed")}, "USDT")

		exchange.EXPECT().GetBalance(gomock.Any(), "XYZ").Return(decimal.NewFromInt(5), nil)

		snapshot, err := handler.Snapshot(ctx, []string{"XYZ"})
		require.NoError(t, err)
		require.True(t, snapshot.Value("XYZ").IsZero())
	})

	t.Run("a symbol whose balance fails is valued at zero", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exchange := mock_repository.NewMockExchangeRepository(ctrl)
		handler := NewPositionService(exchange, NewPriceService(exchange), "USDT")

		exchange.EXPECT().GetBalance(gomock.Any(), "BTC").Return(decimal.Zero, fmt.Errorf("exchange down"))

		snapshot, err := handler.Snapshot(ctx, []string{"BTC"})
		require.NoError(t, err)
		require.True(t, snapshot.Value("BTC").IsZero())
	})
}

func Test_positionSnapshot_AdditionalAmount(t *testing.T) {
	snapshot := &domain.PositionSnapshot{
		PerSymbolValue: map[string]decimal.Decimal{
			"BTC": decimal.NewFromInt(30),
			"ETH": decimal.NewFromInt(80),
		},
	}
	target := decimal.NewFromInt(50)

	require.True(t, snapshot.AdditionalAmount("BTC", target).Equal(decimal.NewFromInt(20)))
	// above target never produces a negative spend
	require.True(t, snapshot.AdditionalAmount("ETH", target).IsZero())
	// unknown symbol needs the full target
	require.True(t, snapshot.AdditionalAmount("SOL", target).Equal(target))
}

func Test_positionServiceHandler_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("holdings sorted by value with aggregates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exchange := mock_repository.NewMockExchangeRepository(ctrl)
		handler := NewPositionService(exchange, NewPriceService(exchange), "USDT")

		exchange.EXPECT().GetAllBalances(gomock.Any()).Return(map[string]decimal.Decimal{
			"BTC":  decimal.NewFromInt(1),
			"SOL":  decimal.NewFromInt(10),
			"USDT": decimal.NewFromInt(500), // quote asset, excluded
		}, nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "SOL_USDT").Return(decimal.NewFromInt(20), nil)

		summary, err := handler.Summary(ctx)
		require.NoError(t, err)

		require.Contains(t, summary, "2 coins")
		require.Contains(t, summary, "total $300.00")
		require.NotContains(t, summary, "- USDT_")
		// SOL at $200 outranks BTC at $100
		require.Less(t, indexOf(t, summary, "SOL_USDT"), indexOf(t, summary, "BTC_USDT"))
	})

	t.Run("no holdings besides the quote asset", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		exchange := mock_repository.NewMockExchangeRepository(ctrl)
		handler := NewPositionService(exchange, NewPriceService(exchange), "USDT")

		exchange.EXPECT().GetAllBalances(gomock.Any()).Return(map[string]decimal.Decimal{
			"USDT": decimal.NewFromInt(500),
		}, nil)

		summary, err := handler.Summary(ctx)
		require.NoError(t, err)
		require.Contains(t, summary, "No open positions")
	})
}

type stubPriceService struct {
	price decimal.Decimal
	err   error
}

func (s stubPriceService) Price(ctx context.Context, pair string) (decimal.Decimal, error) {
	return s.price, s.err
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	idx := strings.Index(s, sub)
	require.GreaterOrEqual(t, idx, 0, "%q not found in summary", sub)
	return idx
}
