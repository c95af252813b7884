package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot holds the dollar value of each requested symbol at
// a point in time. It is taken fresh immediately before an execution
// and never reused across executions - balances move.
type PositionSnapshot struct {
	PerSymbolValue map[string]decimal.Decimal
	AsOf           time.Time
}

func (s PositionSnapshot) Value(symbol string) decimal.Decimal {
	if v, ok := s.PerSymbolValue[symbol]; ok {
		return v
	}
	return decimal.Zero
}

// AdditionalAmount returns how many dollars must be spent to bring the
// holding up to target. Floored at zero: a holding above target is
// never sold down from a rebalance request.
func (s PositionSnapshot) AdditionalAmount(symbol string, target decimal.Decimal) decimal.Decimal {
	additional := target.Sub(s.Value(symbol))
	if additional.IsNegative() {
		return decimal.Zero
	}
	return additional
}

// PositionInfo is one valued holding, used for balance summaries.
type PositionInfo struct {
	Pair     string
	Currency string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Value    decimal.Decimal
}
