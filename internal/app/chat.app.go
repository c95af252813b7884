package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"tradechat/internal/domain"
	"tradechat/internal/logger"
	"tradechat/internal/repository"
	"tradechat/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChatHandler is the top-level entry for incoming chat messages. It
// runs an ordered chain: pending-confirmation resolution, then intent
// routing, then the LLM fallback. A nil reply means nothing in the
// chain recognized the message.
type ChatHandler struct {
	IntentService      service.IntentService
	ExecutionService   service.ExecutionService
	PositionService    service.PositionService
	DialogService      service.DialogService
	GptRepository      repository.GptRepository      // optional
	JournalRepository  repository.JournalRepository  // optional
	OrderLogRepository repository.OrderLogRepository // optional

	mu        sync.Mutex
	convLocks map[string]*sync.Mutex
}

func NewChatHandler(
	intentService service.IntentService,
	executionService service.ExecutionService,
	positionService service.PositionService,
	dialogService service.DialogService,
	gptRepository repository.GptRepository,
	journalRepository repository.JournalRepository,
	orderLogRepository repository.OrderLogRepository,
) *ChatHandler {
	return &ChatHandler{
		IntentService:      intentService,
		ExecutionService:   executionService,
		PositionService:    positionService,
		DialogService:      dialogService,
		GptRepository:      gptRepository,
		JournalRepository:  journalRepository,
		OrderLogRepository: orderLogRepository,
		convLocks:          map[string]*sync.Mutex{},
	}
}

// conversationLock serializes message handling within one
// conversation. Messages from different conversations proceed
// concurrently.
func (h *ChatHandler) conversationLock(conversationID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.convLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		h.convLocks[conversationID] = lock
	}
	return lock
}

// ProcessMessage handles one chat message and returns the reply, or
// nil when the message matched nothing (the caller falls through to
// whatever general-purpose handling it has).
func (h *ChatHandler) ProcessMessage(ctx context.Context, conversationID, text string) (*string, error) {
	lock := h.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if reply := h.resolvePendingConfirmation(ctx, conversationID, text); reply != nil {
		return reply, nil
	}

	intent := h.IntentService.Parse(text)
	if len(intent.Symbols) > 0 && intent.Kind != domain.IntentKind_Unknown {
		h.DialogService.RecordSymbols(conversationID, intent.Symbols)
	}

	switch intent.Kind {
	case domain.IntentKind_BatchBuy, domain.IntentKind_SingleBuy, domain.IntentKind_Rebalance:
		return h.handleBuy(ctx, conversationID, intent)
	case domain.IntentKind_Sell:
		return h.handleSell(ctx, intent)
	case domain.IntentKind_BalanceCheck:
		return h.handleBalanceCheck(ctx, intent)
	}

	return h.fallback(ctx, text)
}

// resolvePendingConfirmation implements the AwaitingConfirmation
// transitions. An affirmative replays the stored plan verbatim, a
// negative discards it with an acknowledgment, and anything else
// drops the plan and lets the message be treated as new input.
func (h *ChatHandler) resolvePendingConfirmation(ctx context.Context, conversationID, text string) *string {
	log := logger.FromContext(ctx)

	plan, _, ok := h.DialogService.PendingPlan(conversationID)
	if !ok {
		return nil
	}

	if h.DialogService.IsAffirmative(text) {
		h.DialogService.ClearPending(conversationID)

		report, err := h.ExecutionService.Execute(ctx, plan)
		if err != nil {
			log.Errorw("failed to execute confirmed plan", "conversation", conversationID, "error", err)
			return strPtr("Execution failed: " + err.Error())
		}
		h.persistReport(ctx, report)
		return strPtr(h.ExecutionService.RenderReport(report))
	}

	if h.DialogService.IsNegative(text) {
		h.DialogService.ClearPending(conversationID)
		return strPtr("Cancelled - no orders were placed.")
	}

	// unrelated text: the stale plan must not fire against it later
	h.DialogService.ClearPending(conversationID)
	return nil
}

func (h *ChatHandler) handleBuy(ctx context.Context, conversationID string, intent domain.TradingIntent) (*string, error) {
	symbols := intent.Symbols
	if len(symbols) == 0 && intent.Rebalance {
		// elliptical rebalance ("top those up to $50") resolves
		// against recently referenced symbols
		symbols = h.DialogService.LastSymbols(conversationID)
	}
	if len(symbols) == 0 {
		return strPtr("No coin symbols found in the request. Example: \"BTC ETH - buy $10 each\""), nil
	}

	intent.Symbols = symbols
	if err := intent.Validate(); err != nil {
		return strPtr("Cannot execute that: " + err.Error()), nil
	}

	rebalance := intent.Rebalance || intent.Kind == domain.IntentKind_Rebalance
	plan, err := h.ExecutionService.BuildPlan(ctx, symbols, intent.TargetAmount, rebalance)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan: %w", err)
	}

	needsConfirmation, err := h.ExecutionService.NeedsConfirmation(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to apply confirmation policy: %w", err)
	}
	if needsConfirmation {
		h.DialogService.SetPending(conversationID, plan, intent)
		return strPtr(h.ExecutionService.RenderPreview(plan)), nil
	}

	report, err := h.ExecutionService.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to execute plan: %w", err)
	}
	h.persistReport(ctx, report)

	return strPtr(h.ExecutionService.RenderReport(report)), nil
}

func (h *ChatHandler) handleSell(ctx context.Context, intent domain.TradingIntent) (*string, error) {
	if err := intent.Validate(); err != nil {
		return strPtr("Cannot execute that: " + err.Error()), nil
	}

	var amount *decimal.Decimal
	if !intent.SellAll && intent.TargetAmount.GreaterThan(decimal.Zero) {
		amount = &intent.TargetAmount
	}

	merged := &domain.ExecutionReport{
		ReportID:   uuid.New(),
		TotalSpent: decimal.Zero,
		ExecutedAt: time.Now().UTC(),
	}
	for _, symbol := range intent.Symbols {
		report, err := h.ExecutionService.ExecuteSell(ctx, symbol, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to sell %s: %w", symbol, err)
		}
		merged.Outcomes = append(merged.Outcomes, report.Outcomes...)
		merged.Filled += report.Filled
		merged.Skipped += report.Skipped
		merged.Failed += report.Failed
		merged.TotalSpent = merged.TotalSpent.Add(report.TotalSpent)
		merged.DryRun = report.DryRun
	}
	h.persistReport(ctx, merged)

	return strPtr(h.ExecutionService.RenderReport(merged)), nil
}

func (h *ChatHandler) handleBalanceCheck(ctx context.Context, intent domain.TradingIntent) (*string, error) {
	if len(intent.Symbols) > 0 {
		snapshot, err := h.PositionService.Snapshot(ctx, intent.Symbols)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot positions: %w", err)
		}
		lines := []string{"Balance:"}
		for _, symbol := range intent.Symbols {
			lines = append(lines, fmt.Sprintf("- %s: $%s", symbol, snapshot.Value(symbol).StringFixed(2)))
		}
		return strPtr(strings.Join(lines, "\n")), nil
	}

	summary, err := h.PositionService.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build position summary: %w", err)
	}
	return strPtr(summary), nil
}

func (h *ChatHandler) fallback(ctx context.Context, text string) (*string, error) {
	if h.GptRepository == nil {
		return nil, nil
	}

	reply, err := h.GptRepository.Reply(ctx, text)
	if err != nil {
		// the fallback is best effort - a dead LLM should not fail
		// the conversation turn
		logger.FromContext(ctx).Warnw("gpt fallback failed", "error", err)
		return nil, nil
	}
	return strPtr(reply), nil
}

func (h *ChatHandler) persistReport(ctx context.Context, report *domain.ExecutionReport) {
	log := logger.FromContext(ctx)

	if h.JournalRepository != nil {
		if err := h.JournalRepository.Append(ctx, *report); err != nil {
			log.Errorw("failed to append trade journal", "report", report.ReportID, "error", err)
		}
	}
	if h.OrderLogRepository != nil {
		if err := h.OrderLogRepository.Add(ctx, *report); err != nil {
			log.Errorw("failed to persist order log", "report", report.ReportID, "error", err)
		}
	}
}

func strPtr(s string) *string {
	return &s
}
