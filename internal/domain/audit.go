package domain

import "time"

// Событие игровой сессии для аудита
type GameEvent struct {
	ID        int64                  `db:"id" json:"id"`
	SessionID string                 `db:"session_id" json:"session_id"`
	Action    string                 `db:"action" json:"action"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	// Игры
	EventGameStart = "game_start"
	EventGameWin   = "game_win"
	EventGameLose  = "game_lose"

	// Приз
	EventPrizeClaim       = "prize_claim"
	EventPrizeStored      = "prize_stored"
	EventPrizeStoreFailed = "prize_store_failed"
)
