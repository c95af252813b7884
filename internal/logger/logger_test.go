package logger

import (
	"context"
	"testing"
)

func TestLogger(t *testing.T) {
	log := New()
	log.Infow("hello", "symbol", "BTC")

	// missing logger in ctx should not panic
	FromContext(context.Background())

	ctx := AddToContext(context.Background(), log)
	FromContext(ctx)
}
