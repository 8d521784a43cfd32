package repository

import (
	"context"
	"errors"

	"memory_promo/internal/domain"
)

var (
	ErrDuplicatePrizeCode = errors.New("prize code already stored")
	ErrWinnerNotFound     = errors.New("winner not found")
)

// WinnerStore - хранилище победителей; Add используется сессиями, остальное - админкой
type WinnerStore interface {
	Add(ctx context.Context, collection string, rec domain.WinnerSubmission) error
	Recent(ctx context.Context, collection string, limit int) ([]*domain.Winner, error)
	GetByPrizeCode(ctx context.Context, code string) (*domain.Winner, error)
	Count(ctx context.Context, collection string) (int64, error)
}
