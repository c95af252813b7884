package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type IntentKind string

const (
	IntentKind_BatchBuy     IntentKind = "BATCH_BUY"
	IntentKind_SingleBuy    IntentKind = "SINGLE_BUY"
	IntentKind_Rebalance    IntentKind = "REBALANCE"
	IntentKind_Sell         IntentKind = "SELL"
	IntentKind_BalanceCheck IntentKind = "BALANCE_CHECK"
	IntentKind_Unknown      IntentKind = "UNKNOWN"
)

// TradingIntent is the structured form of a free-text trading request.
// Symbols are normalized base assets (uppercase, deduped, no pair
// suffix) in the order the user wrote them.
type TradingIntent struct {
	Kind         IntentKind
	Symbols      []string
	TargetAmount decimal.Decimal
	Rebalance    bool
	SellAll      bool
	Confidence   float64
	RawText      string
}

func (t TradingIntent) Validate() error {
	switch t.Kind {
	case IntentKind_BatchBuy, IntentKind_Rebalance:
		if len(t.Symbols) == 0 {
			return fmt.Errorf("invalid %s intent: no symbols", t.Kind)
		}
	case IntentKind_SingleBuy:
		if len(t.Symbols) != 1 {
			return fmt.Errorf("invalid %s intent: expected exactly one symbol, got %d", t.Kind, len(t.Symbols))
		}
	case IntentKind_Sell:
		if len(t.Symbols) == 0 {
			return fmt.Errorf("invalid %s intent: no symbols", t.Kind)
		}
		// amount is optional for sells - absence means sell the
		// entire holding
		return nil
	case IntentKind_BalanceCheck, IntentKind_Unknown:
		return nil
	}
	if !t.TargetAmount.GreaterThan(decimal.Zero) {
		return fmt.Errorf("invalid %s intent: target amount must be positive, got %s", t.Kind, t.TargetAmount.String())
	}
	return nil
}

func (t TradingIntent) IsBuy() bool {
	switch t.Kind {
	case IntentKind_BatchBuy, IntentKind_SingleBuy, IntentKind_Rebalance:
		return true
	}
	return false
}
