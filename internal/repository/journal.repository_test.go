package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"tradechat/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testReport(symbol string) domain.ExecutionReport {
	return domain.ExecutionReport{
		ReportID: uuid.New(),
		Outcomes: []domain.OrderOutcome{
			{
				Symbol:          symbol,
				Pair:            symbol + "_USDT",
				Side:            domain.OrderSide_Buy,
				RequestedAmount: decimal.NewFromInt(10),
				ActualAmount:    decimal.NewFromInt(10),
				Quantity:        decimal.NewFromFloat(0.1),
				Price:           decimal.NewFromInt(100),
				Status:          domain.OutcomeStatus_Filled,
				OrderID:         "o-1",
			},
		},
		Filled:     1,
		TotalSpent: decimal.NewFromInt(10),
		ExecutedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func Test_csvJournalRepositoryHandler_Append(t *testing.T) {
	t.Run("first append writes the header once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journal.csv")
		journal := NewCsvJournalRepository(path)

		require.NoError(t, journal.Append(context.Background(), testReport("BTC")))
		require.NoError(t, journal.Append(context.Background(), testReport("ETH")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		require.Len(t, lines, 3)
		require.Contains(t, lines[0], "executed_at")
		require.Contains(t, lines[1], "BTC_USDT")
		require.Contains(t, lines[2], "ETH_USDT")
		require.Equal(t, 1, strings.Count(string(content), "executed_at"))
	})

	t.Run("rows carry the fill details", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journal.csv")
		journal := NewCsvJournalRepository(path)

		require.NoError(t, journal.Append(context.Background(), testReport("SOL")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(content), "SOL_USDT,buy,10,10,0.1,100,FILLED,,o-1")
	})
}
