package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSide_Buy  OrderSide = "buy"
	OrderSide_Sell OrderSide = "sell"
)

type OutcomeStatus string

const (
	OutcomeStatus_Filled  OutcomeStatus = "FILLED"
	OutcomeStatus_Skipped OutcomeStatus = "SKIPPED"
	OutcomeStatus_Failed  OutcomeStatus = "FAILED"
)

// PlannedOrder is one entry of an OrderPlan. SpendAmount is dollars to
// convert; zero means the entry is skipped without touching the
// exchange.
type PlannedOrder struct {
	Symbol       string
	Pair         string
	Side         OrderSide
	SpendAmount  decimal.Decimal
	CurrentValue decimal.Decimal
}

// OrderPlan is computed once per execution request and consumed
// immediately. It is never persisted.
type OrderPlan struct {
	PlanID    uuid.UUID
	Orders    []PlannedOrder
	Rebalance bool
	CreatedAt time.Time
}

func (p OrderPlan) TotalSpend() decimal.Decimal {
	total := decimal.Zero
	for _, o := range p.Orders {
		total = total.Add(o.SpendAmount)
	}
	return total
}

func (p OrderPlan) Symbols() []string {
	symbols := make([]string, 0, len(p.Orders))
	for _, o := range p.Orders {
		symbols = append(symbols, o.Symbol)
	}
	return symbols
}

// OrderOutcome records what happened to one planned order.
type OrderOutcome struct {
	Symbol          string
	Pair            string
	Side            OrderSide
	RequestedAmount decimal.Decimal
	ActualAmount    decimal.Decimal
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	CurrentValue    decimal.Decimal
	Status          OutcomeStatus
	Note            string
	OrderID         string
}

// ExecutionReport aggregates the outcomes of one batch. Immutable once
// produced.
type ExecutionReport struct {
	ReportID   uuid.UUID
	Outcomes   []OrderOutcome
	TotalSpent decimal.Decimal
	Filled     int
	Skipped    int
	Failed     int
	Rebalance  bool
	DryRun     bool
	ExecutedAt time.Time
}
