package service

import (
	"context"

	"memory_promo/internal/domain"
	"memory_promo/internal/logger"
)

// EventWriter - приемник событий аудита (AuditRepository)
type EventWriter interface {
	Create(ctx context.Context, ev *domain.GameEvent) error
}

// пишет события игровых сессий в журнал
type AuditService struct {
	repo EventWriter
}

func NewAuditService(repo EventWriter) *AuditService {
	return &AuditService{repo: repo}
}

// создает запись в журнале; ошибка только логируется
func (s *AuditService) Log(ctx context.Context, sessionID, action string, details map[string]interface{}) {
	ev := &domain.GameEvent{
		SessionID: sessionID,
		Action:    action,
		Details:   details,
	}
	if err := s.repo.Create(ctx, ev); err != nil {
		logger.Error("failed to write game event", "error", err, "action", action, "session_id", sessionID)
	}
}

func (s *AuditService) LogStart(ctx context.Context, sessionID string) {
	s.Log(ctx, sessionID, domain.EventGameStart, nil)
}

// логирует итог партии
func (s *AuditService) LogOutcome(ctx context.Context, sessionID string, o domain.Outcome) {
	action := domain.EventGameLose
	if o.Won {
		action = domain.EventGameWin
	}
	s.Log(ctx, sessionID, action, map[string]interface{}{
		"reason":    string(o.Reason),
		"moves":     o.Moves,
		"matched":   o.Matched,
		"time_left": o.TimeLeft,
	})
}

func (s *AuditService) LogClaim(ctx context.Context, sessionID string) {
	s.Log(ctx, sessionID, domain.EventPrizeClaim, nil)
}

// личные данные победителя в журнал не попадают, только код
func (s *AuditService) LogStored(ctx context.Context, sessionID, collection string, rec domain.WinnerSubmission) {
	s.Log(ctx, sessionID, domain.EventPrizeStored, map[string]interface{}{
		"collection": collection,
		"prize_code": rec.PrizeCode,
	})
}

func (s *AuditService) LogStoreFailed(ctx context.Context, sessionID string, rec domain.WinnerSubmission, cause error) {
	s.Log(ctx, sessionID, domain.EventPrizeStoreFailed, map[string]interface{}{
		"prize_code": rec.PrizeCode,
		"error":      cause.Error(),
	})
}
