package service

import (
	"regexp"
	"strings"
	"tradechat/internal/domain"

	"github.com/shopspring/decimal"
)

// IntentService turns free-form chat text into a TradingIntent. It is
// a pure function of the input text - no exchange calls, no state.
type IntentService interface {
	Parse(text string) domain.TradingIntent
}

func NewIntentService() IntentService {
	return intentServiceHandler{}
}

type intentServiceHandler struct{}

var buyKeywords = []*regexp.Regexp{
	regexp.MustCompile(`куп[ий]`),
	regexp.MustCompile(`купить`),
	regexp.MustCompile(`докуп`),
	regexp.MustCompile(`приобрест`),
	regexp.MustCompile(`возьми`),
	regexp.MustCompile(`добав`),
	regexp.MustCompile(`набери`),
	regexp.MustCompile(`закупи`),
	regexp.MustCompile(`\bbuy\b`),
	regexp.MustCompile(`top\s+up`),
}

var sellKeywords = []*regexp.Regexp{
	regexp.MustCompile(`прода[йм]`),
	regexp.MustCompile(`продать`),
	regexp.MustCompile(`слей`),
	regexp.MustCompile(`слить`),
	regexp.MustCompile(`скинь`),
	regexp.MustCompile(`выведи`),
	regexp.MustCompile(`ликвидируй`),
	regexp.MustCompile(`\bsell\b`),
}

var rebalanceKeywords = []*regexp.Regexp{
	regexp.MustCompile(`учитыва[яй]`),
	regexp.MustCompile(`уже куплен`),
	regexp.MustCompile(`докуп.*до`),
	regexp.MustCompile(`доведи.*до`),
	regexp.MustCompile(`ребаланс`),
	regexp.MustCompile(`rebalance`),
	regexp.MustCompile(`top\s+up\s+to`),
	regexp.MustCompile(`already\s+(bought|holding|have)`),
	regexp.MustCompile(`accounting\s+for`),
	regexp.MustCompile(`до\s.*каждой`),
	regexp.MustCompile(`каждую\s.*до`),
}

var balanceKeywords = []*regexp.Regexp{
	regexp.MustCompile(`скольк[ои]`),
	regexp.MustCompile(`баланс`),
	regexp.MustCompile(`позици[яи]`),
	regexp.MustCompile(`что у меня`),
	regexp.MustCompile(`мои монеты`),
	regexp.MustCompile(`портфель`),
	regexp.MustCompile(`\bbalance\b`),
	regexp.MustCompile(`\bpositions?\b`),
	regexp.MustCompile(`\bholdings\b`),
	regexp.MustCompile(`\bportfolio\b`),
}

// first match wins; all run against the lowercased text
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:доллар\w*|бакс\w*|usdt|usd)`),
	regexp.MustCompile(`по\s+(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`на\s+(\d+(?:[.,]\d+)?)`),
}

// connector words and currency markers that look like tickers but
// aren't. Tokens are matched individually, so this set is the only
// thing standing between "buy" and a BUY position.
var symbolStopwords = map[string]bool{
	"USDT": true, "USD": true, "EUR": true,
	"BUY": true, "SELL": true, "EACH": true, "PER": true,
	"AND": true, "THE": true, "FOR": true, "ALL": true,
	"TOP": true, "UP": true, "TO": true, "OF": true, "ON": true,
	"AT": true, "IN": true, "IT": true, "IS": true, "MY": true,
	"ME": true, "NOW": true, "PLEASE": true, "WHAT": true,
	"WHATS": true, "HOW": true, "MUCH": true, "HAVE": true,
	"WITH": true, "ALREADY": true, "BOUGHT": true,
	"ACCOUNTING": true, "COIN": true, "COINS": true,
	"DOLLAR": true, "DOLLARS": true, "BUCKS": true,
	"BALANCE": true, "REBALANCE": true, "POSITION": true,
	"POSITIONS": true, "HOLDINGS": true, "PORTFOLIO": true,
	"EVERYTHING": true, "DO": true, "GO": true, "OK": true,
}

var symbolTokenPattern = regexp.MustCompile(`^[A-Za-z]{2,10}$`)

// \b is ASCII-only in RE2, so the Cyrillic variants are substring
// matches like the rest of the Russian vocabulary
var sellAllPattern = regexp.MustCompile(`все|всё|\ball\b|\beverything\b`)

func (h intentServiceHandler) Parse(text string) domain.TradingIntent {
	normalized := strings.TrimSpace(text)
	lower := strings.ToLower(normalized)

	intent := domain.TradingIntent{
		Kind:    domain.IntentKind_Unknown,
		RawText: text,
	}

	isBuy := matchesAny(lower, buyKeywords)
	isSell := matchesAny(lower, sellKeywords)
	isRebalance := matchesAny(lower, rebalanceKeywords)
	isBalance := matchesAny(lower, balanceKeywords)

	intent.Symbols = extractSymbols(normalized)
	intent.TargetAmount = extractAmount(lower)

	switch {
	case isBalance && !isBuy && !isSell:
		intent.Kind = domain.IntentKind_BalanceCheck
		intent.Confidence = 0.8

	case isSell:
		intent.Kind = domain.IntentKind_Sell
		intent.SellAll = sellAllPattern.MatchString(lower)
		intent.Confidence = 0.85
		if len(intent.Symbols) == 0 {
			intent.Kind = domain.IntentKind_Unknown
			intent.Confidence = 0.3
		}

	case isBuy || isRebalance:
		switch {
		case len(intent.Symbols) >= 2:
			intent.Kind = domain.IntentKind_BatchBuy
			intent.Confidence = 0.9
		case len(intent.Symbols) == 1:
			intent.Kind = domain.IntentKind_SingleBuy
			intent.Confidence = 0.85
		case isRebalance:
			// elliptical request, symbols resolve from the
			// conversation's recent context
			intent.Kind = domain.IntentKind_Rebalance
			intent.Confidence = 0.6
		default:
			intent.Confidence = 0.3
		}
		intent.Rebalance = isRebalance
		if isRebalance && intent.Confidence > 0.5 {
			intent.Confidence = capConfidence(intent.Confidence + 0.05)
		}

		// a buy with no parseable amount is not actionable - let it
		// fall through to the general handler instead of guessing
		if intent.Kind != domain.IntentKind_Unknown && !intent.TargetAmount.GreaterThan(decimal.Zero) {
			intent.Kind = domain.IntentKind_Unknown
			intent.Confidence = 0.3
		}
	}

	if len(intent.Symbols) > 0 && intent.TargetAmount.GreaterThan(decimal.Zero) && intent.Kind != domain.IntentKind_Unknown {
		intent.Confidence = capConfidence(intent.Confidence + 0.1)
	}

	return intent
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// extractSymbols classifies each alphabetic token on its own. Tokens
// of 2-10 letters that aren't stopwords are tickers; pair suffixes
// like AAVE_USDT split at the underscore and the USDT half is
// discarded by the stopword set.
func extractSymbols(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	})

	seen := map[string]bool{}
	symbols := []string{}
	for _, token := range tokens {
		if !symbolTokenPattern.MatchString(token) {
			continue
		}
		symbol := strings.ToUpper(token)
		if symbolStopwords[symbol] || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	return symbols
}

func extractAmount(lower string) decimal.Decimal {
	for _, pattern := range amountPatterns {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", "."))
		if err != nil {
			continue
		}
		return amount
	}
	return decimal.Zero
}

func capConfidence(c float64) float64 {
	if c > 1.0 {
		return 1.0
	}
	return c
}
