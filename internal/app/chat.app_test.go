package app

import (
	"context"
	"fmt"
	"testing"
	"time"
	mock_repository "tradechat/internal/repository/mocks"
	"tradechat/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestChatHandler(t *testing.T) (*ChatHandler, *mock_repository.MockExchangeRepository, *mock_repository.MockGptRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)

	exchange := mock_repository.NewMockExchangeRepository(ctrl)
	gpt := mock_repository.NewMockGptRepository(ctrl)

	priceService := service.NewPriceService(exchange)
	positionService := service.NewPositionService(exchange, priceService, "USDT")
	executionService := service.NewExecutionService(exchange, positionService, priceService, service.ExecutionConfig{
		QuoteAsset:            "USDT",
		MinOrderNotional:      decimal.NewFromInt(3),
		MaxUnconfirmedSymbols: 3,
		MaxUnconfirmedTotal:   decimal.NewFromInt(50),
		DryRun:                true,
	})
	dialogService := service.NewDialogService(5 * time.Minute)

	handler := NewChatHandler(
		service.NewIntentService(),
		executionService,
		positionService,
		dialogService,
		gpt,
		nil,
		nil,
	)
	return handler, exchange, gpt
}

func Test_ChatHandler_ProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("small batch buy executes without confirmation", func(t *testing.T) {
		handler, exchange, _ := newTestChatHandler(t)

		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "ETH_USDT").Return(decimal.NewFromInt(50), nil)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "buy BTC ETH for $10 each")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Contains(t, *reply, "dry run")
		require.Contains(t, *reply, "2 filled")
		require.Contains(t, *reply, "$20.00 spent")
	})

	t.Run("large batch previews and executes on confirmation", func(t *testing.T) {
		handler, exchange, _ := newTestChatHandler(t)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "buy AAVE SOL BTC DOT for $10 each")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Contains(t, *reply, "4 coins")
		require.Contains(t, *reply, "Confirm? (yes/no)")

		for _, pair := range []string{"AAVE_USDT", "SOL_USDT", "BTC_USDT", "DOT_USDT"} {
			exchange.EXPECT().GetPrice(gomock.Any(), pair).Return(decimal.NewFromInt(10), nil)
		}

		reply, err = handler.ProcessMessage(ctx, "conv-1", "да")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Contains(t, *reply, "4 filled")
		require.Contains(t, *reply, "$40.00 spent")
	})

	t.Run("negative reply cancels the pending plan", func(t *testing.T) {
		handler, _, gpt := newTestChatHandler(t)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "buy AAVE SOL BTC DOT for $10 each")
		require.NoError(t, err)
		require.Contains(t, *reply, "Confirm? (yes/no)")

		reply, err = handler.ProcessMessage(ctx, "conv-1", "no")
		require.NoError(t, err)
		require.Equal(t, "Cancelled - no orders were placed.", *reply)

		// a second affirmative has nothing left to fire against
		gpt.EXPECT().Reply(gomock.Any(), "да").Return("привет!", nil)
		reply, err = handler.ProcessMessage(ctx, "conv-1", "да")
		require.NoError(t, err)
		require.Equal(t, "привет!", *reply)
	})

	t.Run("unrelated message discards the pending plan and is handled fresh", func(t *testing.T) {
		handler, exchange, _ := newTestChatHandler(t)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "buy AAVE SOL BTC DOT for $10 each")
		require.NoError(t, err)
		require.Contains(t, *reply, "Confirm? (yes/no)")

		exchange.EXPECT().GetAllBalances(gomock.Any()).Return(map[string]decimal.Decimal{
			"USDT": decimal.NewFromInt(100),
		}, nil)

		reply, err = handler.ProcessMessage(ctx, "conv-1", "what's my balance")
		require.NoError(t, err)
		require.Contains(t, *reply, "No open positions")
	})

	t.Run("elliptical rebalance resolves symbols from the conversation", func(t *testing.T) {
		handler, exchange, _ := newTestChatHandler(t)

		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "ETH_USDT").Return(decimal.NewFromInt(50), nil)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "buy BTC ETH for $10 each")
		require.NoError(t, err)
		require.Contains(t, *reply, "2 filled")

		// snapshot for the rebalance plan
		exchange.EXPECT().GetBalance(gomock.Any(), "BTC").Return(decimal.NewFromFloat(0.2), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil)
		exchange.EXPECT().GetBalance(gomock.Any(), "ETH").Return(decimal.Zero, nil)

		reply, err = handler.ProcessMessage(ctx, "conv-1", "докупи до $50 учитывая уже купленные")
		require.NoError(t, err)
		require.NotNil(t, reply)
		// $30 + $50 crosses the unconfirmed total, so this previews
		require.Contains(t, *reply, "Rebalance preview")
		require.Contains(t, *reply, "BTC: holding $20.00, spend $30.00")
		require.Contains(t, *reply, "ETH: holding $0.00, spend $50.00")
	})

	t.Run("elliptical rebalance with no prior symbols asks for them", func(t *testing.T) {
		handler, _, _ := newTestChatHandler(t)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "докупи до $50 учитывая уже купленные")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Contains(t, *reply, "No coin symbols found")
	})

	t.Run("sell all routes through the sell path", func(t *testing.T) {
		handler, exchange, _ := newTestChatHandler(t)

		exchange.EXPECT().GetBalance(gomock.Any(), "SOL").Return(decimal.NewFromInt(2), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "SOL_USDT").Return(decimal.NewFromInt(10), nil)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "sell all my SOL")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Contains(t, *reply, "sold $20.00")
	})

	t.Run("balance check with symbols reports per-symbol values", func(t *testing.T) {
		handler, exchange, _ := newTestChatHandler(t)

		exchange.EXPECT().GetBalance(gomock.Any(), "BTC").Return(decimal.NewFromInt(1), nil)
		exchange.EXPECT().GetPrice(gomock.Any(), "BTC_USDT").Return(decimal.NewFromInt(100), nil)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "сколько у меня BTC")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Contains(t, *reply, "BTC: $100.00")
	})

	t.Run("unrecognized text falls back to the llm", func(t *testing.T) {
		handler, _, gpt := newTestChatHandler(t)

		gpt.EXPECT().Reply(gomock.Any(), "привет, как дела?").Return("всё отлично", nil)

		reply, err := handler.ProcessMessage(ctx, "conv-1", "привет, как дела?")
		require.NoError(t, err)
		require.NotNil(t, reply)
		require.Equal(t, "всё отлично", *reply)
	})

	t.Run("llm failure yields no reply rather than an error", func(t *testing.T) {
		handler, _, gpt := newTestChatHandler(t)

		gpt.EXPECT().Reply(gomock.Any(), gomock.Any()).Return("", fmt.Errorf("rate limited"))

		reply, err := handler.ProcessMessage(ctx, "conv-1", "привет")
		require.NoError(t, err)
		require.Nil(t, reply)
	})

	t.Run("no llm configured yields no reply", func(t *testing.T) {
		handler, _, _ := newTestChatHandler(t)
		handler.GptRepository = nil

		reply, err := handler.ProcessMessage(ctx, "conv-1", "привет")
		require.NoError(t, err)
		require.Nil(t, reply)
	})
}
