package repository

import (
	"context"
	"errors"

	"memory_promo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// хранит победителей в Postgres
type WinnerRepository struct {
	db *pgxpool.Pool
}

func NewWinnerRepository(db *pgxpool.Pool) *WinnerRepository {
	return &WinnerRepository{db: db}
}

// Add сохраняет заявку победителя в коллекцию
func (r *WinnerRepository) Add(ctx context.Context, collection string, rec domain.WinnerSubmission) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO winners (collection, name, phone, email, prize_code, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, collection, rec.Name, rec.Phone, rec.Email, rec.PrizeCode, rec.Timestamp)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicatePrizeCode
	}
	return err
}

// последние победители коллекции
func (r *WinnerRepository) Recent(ctx context.Context, collection string, limit int) ([]*domain.Winner, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, collection, name, phone, email, prize_code, timestamp, created_at
		FROM winners
		WHERE collection = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, collection, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Winner
	for rows.Next() {
		w, err := scanWinner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WinnerRepository) GetByPrizeCode(ctx context.Context, code string) (*domain.Winner, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, collection, name, phone, email, prize_code, timestamp, created_at
		FROM winners
		WHERE prize_code = $1
	`, code)
	w, err := scanWinner(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWinnerNotFound
	}
	return w, err
}

func (r *WinnerRepository) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM winners WHERE collection = $1`, collection).Scan(&n)
	return n, err
}

func scanWinner(row pgx.Row) (*domain.Winner, error) {
	var w domain.Winner
	if err := row.Scan(&w.ID, &w.Collection, &w.Name, &w.Phone, &w.Email, &w.PrizeCode, &w.Timestamp, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
