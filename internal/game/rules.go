package game

import (
	"fmt"
	"time"
)

// Колода по умолчанию: шесть пар фреймворков
var DefaultDeck = []string{"angular", "aurelia", "backbone", "ember", "react", "vue"}

const (
	DefaultMaxMoves          = 125
	DefaultTimeBudgetSeconds = 300
	DefaultRevealDelay       = 1500 * time.Millisecond
)

// Правила партии
type Rules struct {
	Deck              []string      `json:"deck"` // ключ группы на каждую пару
	MaxMoves          int           `json:"max_moves"`
	TimeBudgetSeconds int           `json:"time_budget_seconds"`
	RevealDelay       time.Duration `json:"reveal_delay"`
}

// DefaultRules возвращает правила акции
func DefaultRules() Rules {
	return Rules{
		Deck:              append([]string(nil), DefaultDeck...),
		MaxMoves:          DefaultMaxMoves,
		TimeBudgetSeconds: DefaultTimeBudgetSeconds,
		RevealDelay:       DefaultRevealDelay,
	}
}

// TotalPairs - число пар на столе
func (r Rules) TotalPairs() int { return len(r.Deck) }

// Validate проверяет, что правилами можно играть
func (r Rules) Validate() error {
	if len(r.Deck) == 0 {
		return fmt.Errorf("deck is empty")
	}
	seen := make(map[string]bool, len(r.Deck))
	for _, key := range r.Deck {
		if key == "" {
			return fmt.Errorf("deck contains empty group key")
		}
		if seen[key] {
			return fmt.Errorf("deck contains duplicate group key %q", key)
		}
		seen[key] = true
	}
	if r.MaxMoves <= 0 {
		return fmt.Errorf("max moves must be positive, got %d", r.MaxMoves)
	}
	if r.TimeBudgetSeconds <= 0 {
		return fmt.Errorf("time budget must be positive, got %d", r.TimeBudgetSeconds)
	}
	if r.RevealDelay < 0 {
		return fmt.Errorf("reveal delay must not be negative")
	}
	return nil
}
