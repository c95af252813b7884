package domain

import (
	"time"
)

type DialogState string

const (
	DialogState_Idle                 DialogState = "IDLE"
	DialogState_AwaitingConfirmation DialogState = "AWAITING_CONFIRMATION"
)

// DialogContext is the short-lived conversational state for a single
// conversation. Exactly one context exists per conversation and it is
// only mutated by the dialog service.
type DialogContext struct {
	ConversationID string
	State          DialogState

	// set while awaiting confirmation; replayed verbatim on an
	// affirmative reply
	PendingPlan   *OrderPlan
	PendingIntent *TradingIntent

	// most recently referenced symbols, for elliptical follow-ups
	// ("yes, buy those")
	LastSymbols []string

	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the context has outlived its TTL. Expiry is
// evaluated lazily on access - there is no background timer.
func (c DialogContext) Expired(now time.Time) bool {
	return now.Sub(c.CreatedAt) > c.TTL
}
