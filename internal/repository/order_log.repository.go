package repository

import (
	"context"
	"database/sql"
	"fmt"
	"tradechat/internal/domain"
)

// OrderLogRepository persists per-symbol outcomes of executed batches.
// Plans themselves are never stored - only what actually happened.
type OrderLogRepository interface {
	Add(ctx context.Context, report domain.ExecutionReport) error
}

type orderLogRepositoryHandler struct {
	Db *sql.DB
}

func NewOrderLogRepository(db *sql.DB) OrderLogRepository {
	return orderLogRepositoryHandler{
		Db: db,
	}
}

func (h orderLogRepositoryHandler) Add(ctx context.Context, report domain.ExecutionReport) error {
	tx, err := h.Db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, outcome := range report.Outcomes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_log (
				report_id, pair, side, requested_amount, actual_amount,
				quantity, price, status, note, provider_order_id,
				dry_run, executed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			report.ReportID,
			outcome.Pair,
			string(outcome.Side),
			outcome.RequestedAmount,
			outcome.ActualAmount,
			outcome.Quantity,
			outcome.Price,
			string(outcome.Status),
			outcome.Note,
			outcome.OrderID,
			report.DryRun,
			report.ExecutedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert order log row for %s: %w", outcome.Pair, err)
		}
	}

	return tx.Commit()
}
