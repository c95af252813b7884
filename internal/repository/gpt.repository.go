package repository

import (
	"context"
	"fmt"

	"github.com/ayush6624/go-chatgpt"
)

// GptRepository is the general-purpose fallback for messages that do
// not match any trading intent.
type GptRepository interface {
	Reply(ctx context.Context, message string) (string, error)
}

type gptRepositoryHandler struct {
	GptClient *chatgpt.Client
}

func NewGptRepository(apiKey string) (GptRepository, error) {
	client, err := chatgpt.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to construct gpt client: %w", err)
	}

	return gptRepositoryHandler{
		GptClient: client,
	}, nil
}

const fallbackPrompt = `You are the conversational side of a spot-trading assistant. The user's message did not match any trading command. Answer briefly and helpfully. If they seem to be asking about trading, remind them of the supported phrasing, e.g. "AAVE SOL BTC - buy $10 each" or "BTC ETH - top up to $50 accounting for what's already bought". Never invent balances or prices.

User message:
`

func (h gptRepositoryHandler) Reply(ctx context.Context, message string) (string, error) {
	res, err := h.GptClient.SimpleSend(ctx, fallbackPrompt+message)
	if err != nil {
		return "", fmt.Errorf("gpt fallback failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("gpt fallback returned no choices")
	}

	return res.Choices[0].Message.Content, nil
}
