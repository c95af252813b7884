package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradechat/internal/domain"
)

func Test_intentServiceHandler_Parse(t *testing.T) {
	handler := NewIntentService()

	t.Run("russian batch buy with per-coin amount", func(t *testing.T) {
		intent := handler.Parse("AAVE SOL BTC - купить по 10 долларов")

		require.Equal(t, domain.IntentKind_BatchBuy, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"AAVE", "SOL", "BTC"}, intent.Symbols))
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromInt(10)))
		require.False(t, intent.Rebalance)
		require.GreaterOrEqual(t, intent.Confidence, 0.9)
	})

	t.Run("russian rebalance accounting for holdings", func(t *testing.T) {
		intent := handler.Parse("BTC ETH - докупи до $50 учитывая уже купленные")

		require.Equal(t, domain.IntentKind_BatchBuy, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"BTC", "ETH"}, intent.Symbols))
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromInt(50)))
		require.True(t, intent.Rebalance)
	})

	t.Run("english rebalance phrasing", func(t *testing.T) {
		intent := handler.Parse("top up BTC ETH to $50 accounting for what I already have")

		require.Equal(t, domain.IntentKind_BatchBuy, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"BTC", "ETH"}, intent.Symbols))
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromInt(50)))
		require.True(t, intent.Rebalance)
	})

	t.Run("elliptical rebalance without symbols", func(t *testing.T) {
		intent := handler.Parse("докупи до $50 учитывая уже купленные")

		require.Equal(t, domain.IntentKind_Rebalance, intent.Kind)
		require.Empty(t, intent.Symbols)
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromInt(50)))
		require.True(t, intent.Rebalance)
	})

	t.Run("single symbol buy", func(t *testing.T) {
		intent := handler.Parse("buy SOL for $25")

		require.Equal(t, domain.IntentKind_SingleBuy, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"SOL"}, intent.Symbols))
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromInt(25)))
	})

	t.Run("buy with no amount is not actionable", func(t *testing.T) {
		intent := handler.Parse("купи BTC")

		require.Equal(t, domain.IntentKind_Unknown, intent.Kind)
		require.LessOrEqual(t, intent.Confidence, 0.5)
	})

	t.Run("decimal comma amount", func(t *testing.T) {
		intent := handler.Parse("купи BTC по 10,5")

		require.Equal(t, domain.IntentKind_SingleBuy, intent.Kind)
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromFloat(10.5)))
	})

	t.Run("sell everything in one symbol", func(t *testing.T) {
		intent := handler.Parse("sell all my SOL")

		require.Equal(t, domain.IntentKind_Sell, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"SOL"}, intent.Symbols))
		require.True(t, intent.SellAll)
	})

	t.Run("russian sell all", func(t *testing.T) {
		intent := handler.Parse("продай все BTC")

		require.Equal(t, domain.IntentKind_Sell, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"BTC"}, intent.Symbols))
		require.True(t, intent.SellAll)
	})

	t.Run("partial sell with amount", func(t *testing.T) {
		intent := handler.Parse("sell $20 of ETH")

		require.Equal(t, domain.IntentKind_Sell, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"ETH"}, intent.Symbols))
		require.True(t, intent.TargetAmount.Equal(decimal.NewFromInt(20)))
		require.False(t, intent.SellAll)
	})

	t.Run("sell without symbols is not actionable", func(t *testing.T) {
		intent := handler.Parse("sell everything now")

		require.Equal(t, domain.IntentKind_Unknown, intent.Kind)
	})

	t.Run("balance check without symbols", func(t *testing.T) {
		intent := handler.Parse("what's my balance")

		require.Equal(t, domain.IntentKind_BalanceCheck, intent.Kind)
		require.Empty(t, intent.Symbols)
	})

	t.Run("russian balance check with symbol", func(t *testing.T) {
		intent := handler.Parse("сколько у меня BTC")

		require.Equal(t, domain.IntentKind_BalanceCheck, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"BTC"}, intent.Symbols))
	})

	t.Run("unrelated chat falls through", func(t *testing.T) {
		intent := handler.Parse("привет, как дела?")

		require.Equal(t, domain.IntentKind_Unknown, intent.Kind)
	})

	t.Run("pair suffix is stripped to the base symbol", func(t *testing.T) {
		intent := handler.Parse("buy AAVE_USDT and SOL_USDT for $10 each")

		require.Equal(t, domain.IntentKind_BatchBuy, intent.Kind)
		require.Empty(t, cmp.Diff([]string{"AAVE", "SOL"}, intent.Symbols))
	})

	t.Run("duplicate symbols collapse preserving order", func(t *testing.T) {
		intent := handler.Parse("buy BTC ETH BTC for $10 each")

		require.Empty(t, cmp.Diff([]string{"BTC", "ETH"}, intent.Symbols))
	})

	t.Run("raw text is preserved", func(t *testing.T) {
		raw := "buy SOL for $25"
		intent := handler.Parse(raw)

		require.Equal(t, raw, intent.RawText)
	})
}
