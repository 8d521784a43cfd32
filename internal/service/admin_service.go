package service

import (
	"context"
	"errors"
	"strings"

	"memory_promo/internal/domain"
	"memory_promo/internal/repository"
)

var ErrEmptyPrizeCode = errors.New("prize code is empty")

// EventCounter - агрегаты журнала событий (есть только при Postgres)
type EventCounter interface {
	CountByAction(ctx context.Context) (map[string]int64, error)
}

// предоставляет статистику акции и поиск победителей для админ бота
type AdminService struct {
	winners    repository.WinnerStore
	events     EventCounter
	active     func() int
	collection string
}

// создает административный сервис; events и active могут быть nil
func NewAdminService(winners repository.WinnerStore, events EventCounter, active func() int, collection string) *AdminService {
	return &AdminService{
		winners:    winners,
		events:     events,
		active:     active,
		collection: collection,
	}
}

// статистика акции
type Stats struct {
	Collection     string `json:"collection"`
	TotalWinners   int64  `json:"total_winners"`
	ActiveSessions int    `json:"active_sessions"`
	GamesStarted   int64  `json:"games_started"`
	GamesWon       int64  `json:"games_won"`
	GamesLost      int64  `json:"games_lost"`
	PrizeClaims    int64  `json:"prize_claims"`
	StoreFailures  int64  `json:"store_failures"`
}

func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Collection: s.collection}

	n, err := s.winners.Count(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	stats.TotalWinners = n

	if s.active != nil {
		stats.ActiveSessions = s.active()
	}

	// без журнала событий счетчики партий остаются нулевыми
	if s.events != nil {
		counts, err := s.events.CountByAction(ctx)
		if err != nil {
			return nil, err
		}
		stats.GamesStarted = counts[domain.EventGameStart]
		stats.GamesWon = counts[domain.EventGameWin]
		stats.GamesLost = counts[domain.EventGameLose]
		stats.PrizeClaims = counts[domain.EventPrizeClaim]
		stats.StoreFailures = counts[domain.EventPrizeStoreFailed]
	}
	return stats, nil
}

// последние победители, limit ограничен 1..50
func (s *AdminService) RecentWinners(ctx context.Context, limit int) ([]*domain.Winner, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return s.winners.Recent(ctx, s.collection, limit)
}

// поиск победителя по коду приза, регистр не важен
func (s *AdminService) FindWinner(ctx context.Context, code string) (*domain.Winner, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrEmptyPrizeCode
	}
	return s.winners.GetByPrizeCode(ctx, code)
}
