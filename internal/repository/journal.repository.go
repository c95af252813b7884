package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
	"tradechat/internal/domain"

	"github.com/gocarina/gocsv"
)

// JournalRepository appends executed batches to a local trade journal.
type JournalRepository interface {
	Append(ctx context.Context, report domain.ExecutionReport) error
}

type csvJournalRepositoryHandler struct {
	Path string

	mu sync.Mutex
}

func NewCsvJournalRepository(path string) JournalRepository {
	return &csvJournalRepositoryHandler{
		Path: path,
	}
}

type journalRow struct {
	ExecutedAt string `csv:"executed_at"`
	ReportID   string `csv:"report_id"`
	Pair       string `csv:"pair"`
	Side       string `csv:"side"`
	Requested  string `csv:"requested_usd"`
	Actual     string `csv:"actual_usd"`
	Quantity   string `csv:"quantity"`
	Price      string `csv:"price"`
	Status     string `csv:"status"`
	Note       string `csv:"note"`
	OrderID    string `csv:"order_id"`
	DryRun     bool   `csv:"dry_run"`
}

func (h *csvJournalRepositoryHandler) Append(ctx context.Context, report domain.ExecutionReport) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows := make([]journalRow, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		rows = append(rows, journalRow{
			ExecutedAt: report.ExecutedAt.UTC().Format(time.RFC3339),
			ReportID:   report.ReportID.String(),
			Pair:       outcome.Pair,
			Side:       string(outcome.Side),
			Requested:  outcome.RequestedAmount.String(),
			Actual:     outcome.ActualAmount.String(),
			Quantity:   outcome.Quantity.String(),
			Price:      outcome.Price.String(),
			Status:     string(outcome.Status),
			Note:       outcome.Note,
			OrderID:    outcome.OrderID,
			DryRun:     report.DryRun,
		})
	}

	f, err := os.OpenFile(h.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal %s: %w", h.Path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat journal %s: %w", h.Path, err)
	}

	if stat.Size() == 0 {
		err = gocsv.MarshalFile(&rows, f)
	} else {
		err = gocsv.MarshalWithoutHeaders(&rows, f)
	}
	if err != nil {
		return fmt.Errorf("failed to write journal %s: %w", h.Path, err)
	}

	return nil
}
