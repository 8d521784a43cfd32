package repository

import (
	"context"
	"encoding/json"

	"memory_promo/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// журнал событий игровых сессий
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create записывает событие; несериализуемые детали заменяются пустым объектом
func (r *AuditRepository) Create(ctx context.Context, ev *domain.GameEvent) error {
	detailsJSON, err := json.Marshal(ev.Details)
	if err != nil || ev.Details == nil {
		detailsJSON = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO game_events (session_id, action, details)
		VALUES ($1, $2, $3)
	`, ev.SessionID, ev.Action, detailsJSON)
	return err
}

// события одной сессии в хронологическом порядке
func (r *AuditRepository) GetBySession(ctx context.Context, sessionID string, limit int) ([]*domain.GameEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, action, details, created_at
		FROM game_events
		WHERE session_id = $1
		ORDER BY created_at, id
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGameEvents(rows)
}

// CountByAction - число событий каждого типа, для статистики админа
func (r *AuditRepository) CountByAction(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT action, COUNT(*) FROM game_events GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var action string
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[action] = n
	}
	return out, rows.Err()
}

func scanGameEvents(rows pgx.Rows) ([]*domain.GameEvent, error) {
	var events []*domain.GameEvent
	for rows.Next() {
		var ev domain.GameEvent
		var detailsJSON []byte
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Action, &detailsJSON, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailsJSON, &ev.Details); err != nil {
			ev.Details = make(map[string]interface{})
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
