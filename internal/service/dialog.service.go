package service

import (
	"strings"
	"sync"
	"time"
	"tradechat/internal/domain"
)

// DialogService owns the short-lived per-conversation context: the
// plan awaiting confirmation and the most recently referenced
// symbols. Expiry is lazy - contexts are checked against their TTL on
// every access and dropped when stale, so a "yes" that arrives after
// the TTL is just text.
type DialogService interface {
	PendingPlan(conversationID string) (*domain.OrderPlan, *domain.TradingIntent, bool)
	SetPending(conversationID string, plan *domain.OrderPlan, intent domain.TradingIntent)
	ClearPending(conversationID string)
	RecordSymbols(conversationID string, symbols []string)
	LastSymbols(conversationID string) []string
	IsAffirmative(text string) bool
	IsNegative(text string) bool
}

func NewDialogService(ttl time.Duration) DialogService {
	return &dialogServiceHandler{
		ttl:      ttl,
		contexts: map[string]*domain.DialogContext{},
		now:      time.Now,
	}
}

type dialogServiceHandler struct {
	ttl      time.Duration
	contexts map[string]*domain.DialogContext
	now      func() time.Time

	mu sync.Mutex
}

// language-agnostic confirm/cancel vocabulary, checked before any
// re-parse of the message
var affirmativeTokens = map[string]bool{
	"да": true, "yes": true, "подтвердить": true, "confirm": true,
	"ок": true, "ok": true, "делай": true, "go": true, "давай": true,
	"выполняй": true, "yep": true, "ага": true,
}

var negativeTokens = map[string]bool{
	"нет": true, "no": true, "отмена": true, "cancel": true,
	"стоп": true, "stop": true, "nope": true,
}

func normalizeReply(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), "!.?,")
}

func (h *dialogServiceHandler) IsAffirmative(text string) bool {
	return affirmativeTokens[normalizeReply(text)]
}

func (h *dialogServiceHandler) IsNegative(text string) bool {
	return negativeTokens[normalizeReply(text)]
}

// get returns the live context, evicting it if expired. Caller must
// hold h.mu.
func (h *dialogServiceHandler) get(conversationID string) *domain.DialogContext {
	c, ok := h.contexts[conversationID]
	if !ok {
		return nil
	}
	if c.Expired(h.now()) {
		delete(h.contexts, conversationID)
		return nil
	}
	return c
}

// getOrCreate refreshes CreatedAt, extending the context's life on
// every write. Caller must hold h.mu.
func (h *dialogServiceHandler) getOrCreate(conversationID string) *domain.DialogContext {
	c := h.get(conversationID)
	if c == nil {
		c = &domain.DialogContext{
			ConversationID: conversationID,
			State:          domain.DialogState_Idle,
			TTL:            h.ttl,
		}
		h.contexts[conversationID] = c
	}
	c.CreatedAt = h.now()
	return c
}

func (h *dialogServiceHandler) PendingPlan(conversationID string) (*domain.OrderPlan, *domain.TradingIntent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.get(conversationID)
	if c == nil || c.State != domain.DialogState_AwaitingConfirmation || c.PendingPlan == nil {
		return nil, nil, false
	}
	return c.PendingPlan, c.PendingIntent, true
}

func (h *dialogServiceHandler) SetPending(conversationID string, plan *domain.OrderPlan, intent domain.TradingIntent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.getOrCreate(conversationID)
	c.State = domain.DialogState_AwaitingConfirmation
	c.PendingPlan = plan
	c.PendingIntent = &intent
}

func (h *dialogServiceHandler) ClearPending(conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.get(conversationID)
	if c == nil {
		return
	}
	c.State = domain.DialogState_Idle
	c.PendingPlan = nil
	c.PendingIntent = nil
}

// RecordSymbols updates the conversation's referenced symbol set
// regardless of state, so later elliptical requests ("top those up to
// $50") can resolve without restating the list.
func (h *dialogServiceHandler) RecordSymbols(conversationID string, symbols []string) {
	if len(symbols) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.getOrCreate(conversationID)
	c.LastSymbols = append([]string{}, symbols...)
}

func (h *dialogServiceHandler) LastSymbols(conversationID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.get(conversationID)
	if c == nil {
		return nil
	}
	return append([]string{}, c.LastSymbols...)
}
