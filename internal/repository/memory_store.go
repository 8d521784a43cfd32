package repository

import (
	"context"
	"sync"
	"time"

	"memory_promo/internal/domain"
)

// MemoryWinnerStore держит победителей в памяти процесса; для локального запуска и тестов
type MemoryWinnerStore struct {
	mu     sync.RWMutex
	seq    int64
	byCode map[string]*domain.Winner
	byColl map[string][]*domain.Winner
	now    func() time.Time
}

func NewMemoryWinnerStore() *MemoryWinnerStore {
	return &MemoryWinnerStore{
		byCode: make(map[string]*domain.Winner),
		byColl: make(map[string][]*domain.Winner),
		now:    time.Now,
	}
}

func (s *MemoryWinnerStore) Add(ctx context.Context, collection string, rec domain.WinnerSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[rec.PrizeCode]; exists {
		return ErrDuplicatePrizeCode
	}
	s.seq++
	w := &domain.Winner{
		ID:               s.seq,
		Collection:       collection,
		WinnerSubmission: rec,
		CreatedAt:        s.now().UTC(),
	}
	s.byCode[rec.PrizeCode] = w
	s.byColl[collection] = append(s.byColl[collection], w)
	return nil
}

// Recent - последние записи, новые первыми
func (s *MemoryWinnerStore) Recent(_ context.Context, collection string, limit int) ([]*domain.Winner, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byColl[collection]
	out := make([]*domain.Winner, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		w := *list[i]
		out = append(out, &w)
	}
	return out, nil
}

func (s *MemoryWinnerStore) GetByPrizeCode(_ context.Context, code string) (*domain.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byCode[code]
	if !ok {
		return nil, ErrWinnerNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryWinnerStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byColl[collection])), nil
}
