package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"tradechat/internal/domain"
	"tradechat/internal/logger"
	"tradechat/internal/repository"

	"github.com/google/uuid"
	"github.com/maja42/goval"
	"github.com/shopspring/decimal"
)

// ExecutionService turns a multi-symbol intent into individual market
// orders. Plans are computed once, optionally previewed for
// confirmation, then executed sequentially so each fill settles
// before the next symbol is priced.
type ExecutionService interface {
	BuildPlan(ctx context.Context, symbols []string, amountPerCoin decimal.Decimal, rebalance bool) (*domain.OrderPlan, error)
	NeedsConfirmation(plan *domain.OrderPlan) (bool, error)
	Execute(ctx context.Context, plan *domain.OrderPlan) (*domain.ExecutionReport, error)
	ExecuteSell(ctx context.Context, symbol string, amount *decimal.Decimal) (*domain.ExecutionReport, error)
	RenderPreview(plan *domain.OrderPlan) string
	RenderReport(report *domain.ExecutionReport) string
}

type ExecutionConfig struct {
	QuoteAsset            string
	MinOrderNotional      decimal.Decimal
	MaxUnconfirmedSymbols int
	MaxUnconfirmedTotal   decimal.Decimal
	// goval expression over {symbols, total}; empty means the
	// threshold defaults above
	ConfirmationPolicy string
	DryRun             bool
}

func NewExecutionService(
	exchangeRepository repository.ExchangeRepository,
	positionService PositionService,
	priceService PriceService,
	config ExecutionConfig,
) ExecutionService {
	return executionServiceHandler{
		ExchangeRepository: exchangeRepository,
		PositionService:    positionService,
		PriceService:       priceService,
		Config:             config,
	}
}

type executionServiceHandler struct {
	ExchangeRepository repository.ExchangeRepository
	PositionService    PositionService
	PriceService       PriceService
	Config             ExecutionConfig
}

func (h executionServiceHandler) BuildPlan(ctx context.Context, symbols []string, amountPerCoin decimal.Decimal, rebalance bool) (*domain.OrderPlan, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("cannot build plan with no symbols")
	}
	if !amountPerCoin.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("cannot build plan with amount %s per coin", amountPerCoin.String())
	}

	var snapshot *domain.PositionSnapshot
	if rebalance {
		// fresh snapshot right before planning - balances move
		// between executions
		var err error
		snapshot, err = h.PositionService.Snapshot(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot positions: %w", err)
		}
	}

	plan := &domain.OrderPlan{
		PlanID:    uuid.New(),
		Rebalance: rebalance,
		CreatedAt: time.Now().UTC(),
	}

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		order := domain.PlannedOrder{
			Symbol:      symbol,
			Pair:        PairFor(symbol, h.Config.QuoteAsset),
			Side:        domain.OrderSide_Buy,
			SpendAmount: amountPerCoin,
		}
		if rebalance {
			order.CurrentValue = snapshot.Value(symbol)
			order.SpendAmount = snapshot.AdditionalAmount(symbol, amountPerCoin)
		}
		plan.Orders = append(plan.Orders, order)
	}

	return plan, nil
}

const defaultConfirmationPolicy = "symbols > %d || total > %s"

// NeedsConfirmation applies the policy gate: large batches are
// previewed and require an explicit affirmative before any order is
// placed.
func (h executionServiceHandler) NeedsConfirmation(plan *domain.OrderPlan) (bool, error) {
	policy := h.Config.ConfirmationPolicy
	if policy == "" {
		policy = fmt.Sprintf(defaultConfirmationPolicy, h.Config.MaxUnconfirmedSymbols, h.Config.MaxUnconfirmedTotal.String())
	}

	result, err := goval.NewEvaluator().Evaluate(policy, map[string]interface{}{
		"symbols": len(plan.Orders),
		"total":   plan.TotalSpend().InexactFloat64(),
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate confirmation policy %q: %w", policy, err)
	}

	needed, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("confirmation policy %q did not evaluate to a boolean", policy)
	}

	return needed, nil
}

func (h executionServiceHandler) Execute(ctx context.Context, plan *domain.OrderPlan) (*domain.ExecutionReport, error) {
	log := logger.FromContext(ctx)

	report := &domain.ExecutionReport{
		ReportID:   uuid.New(),
		TotalSpent: decimal.Zero,
		Rebalance:  plan.Rebalance,
		DryRun:     h.Config.DryRun,
		ExecutedAt: time.Now().UTC(),
	}

	for _, planned := range plan.Orders {
		outcome := h.processOrder(ctx, planned)
		report.Outcomes = append(report.Outcomes, outcome)

		switch outcome.Status {
		case domain.OutcomeStatus_Filled:
			report.Filled++
			report.TotalSpent = report.TotalSpent.Add(outcome.ActualAmount)
		case domain.OutcomeStatus_Skipped:
			report.Skipped++
		case domain.OutcomeStatus_Failed:
			report.Failed++
			// one symbol's failure never aborts the batch
			log.Warnw("order failed, continuing batch", "pair", planned.Pair, "note", outcome.Note)
		}
	}

	return report, nil
}

func (h executionServiceHandler) processOrder(ctx context.Context, planned domain.PlannedOrder) domain.OrderOutcome {
	outcome := domain.OrderOutcome{
		Symbol:          planned.Symbol,
		Pair:            planned.Pair,
		Side:            planned.Side,
		RequestedAmount: planned.SpendAmount,
		CurrentValue:    planned.CurrentValue,
		Status:          domain.OutcomeStatus_Failed,
	}

	if planned.SpendAmount.IsZero() {
		outcome.Status = domain.OutcomeStatus_Skipped
		outcome.Note = fmt.Sprintf("already holding $%s, target met", planned.CurrentValue.StringFixed(2))
		return outcome
	}

	// below the exchange floor we skip rather than round up - rounding
	// up would silently spend more than requested
	if planned.SpendAmount.LessThan(h.Config.MinOrderNotional) {
		outcome.Status = domain.OutcomeStatus_Skipped
		outcome.Note = fmt.Sprintf("below minimum order $%s, requested $%s", h.Config.MinOrderNotional.String(), planned.SpendAmount.StringFixed(2))
		return outcome
	}

	// price fetched at execution time, not from the planning snapshot
	price, err := h.PriceService.Price(ctx, planned.Pair)
	if err != nil {
		outcome.Note = err.Error()
		return outcome
	}
	outcome.Price = price

	quantity := planned.SpendAmount.Div(price)
	outcome.Quantity = quantity

	if h.Config.DryRun {
		outcome.Status = domain.OutcomeStatus_Filled
		outcome.ActualAmount = planned.SpendAmount
		outcome.OrderID = "DRY_RUN"
		return outcome
	}

	result, err := h.ExchangeRepository.PlaceOrder(ctx, repository.PlaceOrderRequest{
		Pair:     planned.Pair,
		Side:     planned.Side,
		Quantity: quantity,
	})
	if err != nil {
		outcome.Note = err.Error()
		return outcome
	}

	outcome.Status = domain.OutcomeStatus_Filled
	outcome.OrderID = result.OrderID
	outcome.Quantity = result.FilledQuantity
	outcome.ActualAmount = planned.SpendAmount
	if result.AvgPrice.GreaterThan(decimal.Zero) {
		outcome.Price = result.AvgPrice
		outcome.ActualAmount = result.FilledQuantity.Mul(result.AvgPrice)
	}

	return outcome
}

// ExecuteSell sells a single symbol. A nil amount means the entire
// holding.
func (h executionServiceHandler) ExecuteSell(ctx context.Context, symbol string, amount *decimal.Decimal) (*domain.ExecutionReport, error) {
	symbol = strings.ToUpper(symbol)
	pair := PairFor(symbol, h.Config.QuoteAsset)

	report := &domain.ExecutionReport{
		ReportID:   uuid.New(),
		TotalSpent: decimal.Zero,
		DryRun:     h.Config.DryRun,
		ExecutedAt: time.Now().UTC(),
	}
	outcome := domain.OrderOutcome{
		Symbol: symbol,
		Pair:   pair,
		Side:   domain.OrderSide_Sell,
		Status: domain.OutcomeStatus_Failed,
	}
	if amount != nil {
		outcome.RequestedAmount = *amount
	}

	defer func() {
		report.Outcomes = append(report.Outcomes, outcome)
	}()

	balance, err := h.ExchangeRepository.GetBalance(ctx, symbol)
	if err != nil {
		outcome.Note = err.Error()
		report.Failed++
		return report, nil
	}
	if !balance.GreaterThan(decimal.Zero) {
		outcome.Status = domain.OutcomeStatus_Skipped
		outcome.Note = "nothing to sell"
		report.Skipped++
		return report, nil
	}

	price, err := h.PriceService.Price(ctx, pair)
	if err != nil {
		outcome.Note = err.Error()
		report.Failed++
		return report, nil
	}
	outcome.Price = price

	quantity := balance
	if amount != nil {
		quantity = amount.Div(price)
		if quantity.GreaterThan(balance) {
			quantity = balance
		}
	}
	outcome.Quantity = quantity

	notional := quantity.Mul(price)
	if notional.LessThan(h.Config.MinOrderNotional) {
		outcome.Status = domain.OutcomeStatus_Skipped
		outcome.Note = fmt.Sprintf("below minimum order $%s, requested $%s", h.Config.MinOrderNotional.String(), notional.StringFixed(2))
		report.Skipped++
		return report, nil
	}

	if h.Config.DryRun {
		outcome.Status = domain.OutcomeStatus_Filled
		outcome.ActualAmount = notional
		outcome.OrderID = "DRY_RUN"
		report.Filled++
		return report, nil
	}

	result, err := h.ExchangeRepository.PlaceOrder(ctx, repository.PlaceOrderRequest{
		Pair:     pair,
		Side:     domain.OrderSide_Sell,
		Quantity: quantity,
	})
	if err != nil {
		outcome.Note = err.Error()
		report.Failed++
		return report, nil
	}

	outcome.Status = domain.OutcomeStatus_Filled
	outcome.OrderID = result.OrderID
	outcome.ActualAmount = notional
	if result.AvgPrice.GreaterThan(decimal.Zero) {
		outcome.Price = result.AvgPrice
		outcome.ActualAmount = result.FilledQuantity.Mul(result.AvgPrice)
	}
	report.Filled++

	return report, nil
}

func (h executionServiceHandler) RenderPreview(plan *domain.OrderPlan) string {
	mode := "Batch buy"
	if plan.Rebalance {
		mode = "Rebalance"
	}

	lines := []string{
		fmt.Sprintf("%s preview - %d coins, $%s total", mode, len(plan.Orders), plan.TotalSpend().StringFixed(2)),
		"",
	}
	for _, order := range plan.Orders {
		if plan.Rebalance {
			lines = append(lines, fmt.Sprintf("- %s: holding $%s, spend $%s", order.Symbol, order.CurrentValue.StringFixed(2), order.SpendAmount.StringFixed(2)))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: spend $%s", order.Symbol, order.SpendAmount.StringFixed(2)))
		}
	}
	lines = append(lines, "", "Confirm? (yes/no)")

	return strings.Join(lines, "\n")
}

func (h executionServiceHandler) RenderReport(report *domain.ExecutionReport) string {
	mode := "Batch buy"
	if report.Rebalance {
		mode = "Rebalance"
	}
	if report.DryRun {
		mode += " (dry run)"
	}

	lines := []string{
		fmt.Sprintf("%s - %d coins", mode, len(report.Outcomes)),
		"",
	}
	for _, o := range report.Outcomes {
		switch o.Status {
		case domain.OutcomeStatus_Filled:
			action := "bought"
			if o.Side == domain.OrderSide_Sell {
				action = "sold"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s $%s (%s @ $%s)", o.Symbol, action, o.ActualAmount.StringFixed(2), o.Quantity.String(), o.Price.String()))
		case domain.OutcomeStatus_Skipped:
			lines = append(lines, fmt.Sprintf("- %s: skipped - %s", o.Symbol, o.Note))
		case domain.OutcomeStatus_Failed:
			lines = append(lines, fmt.Sprintf("- %s: failed - %s", o.Symbol, o.Note))
		}
	}
	lines = append(lines, "", fmt.Sprintf(
		"Total: %d filled, %d skipped, %d failed, $%s spent",
		report.Filled, report.Skipped, report.Failed, report.TotalSpent.StringFixed(2),
	))

	return strings.Join(lines, "\n")
}
