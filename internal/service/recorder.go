package service

import (
	"context"
	"time"

	"memory_promo/internal/domain"
	"memory_promo/internal/logger"
	"memory_promo/internal/metrics"
	"memory_promo/internal/session"
)

const sideEffectTimeout = 5 * time.Second

// WinnerNotifier уведомляет о новом победителе (админ бот)
type WinnerNotifier interface {
	NotifyNewWinner(ctx context.Context, collection string, rec domain.WinnerSubmission)
}

// EventRecorder раздает события сессии в метрики, журнал и уведомления.
// audit и notifier могут быть nil.
type EventRecorder struct {
	metrics    *metrics.Metrics
	audit      *AuditService
	notifier   WinnerNotifier
	collection string
}

func NewEventRecorder(m *metrics.Metrics, audit *AuditService, notifier WinnerNotifier, collection string) *EventRecorder {
	return &EventRecorder{metrics: m, audit: audit, notifier: notifier, collection: collection}
}

// Hooks для одной сессии. Хуки вызываются в горутине актора,
// поэтому запись в базу и отправка в Telegram уходят в фон.
func (r *EventRecorder) Hooks(sessionID string) session.Hooks {
	return session.Hooks{
		OnStart: func() {
			r.metrics.GamesStarted.Inc()
			r.background(func(ctx context.Context) {
				if r.audit != nil {
					r.audit.LogStart(ctx, sessionID)
				}
			})
		},
		OnOutcome: func(o domain.Outcome) {
			r.metrics.ObserveOutcome(o)
			r.background(func(ctx context.Context) {
				if r.audit != nil {
					r.audit.LogOutcome(ctx, sessionID, o)
				}
			})
		},
		OnClaim: func() {
			r.metrics.Claims.Inc()
			r.background(func(ctx context.Context) {
				if r.audit != nil {
					r.audit.LogClaim(ctx, sessionID)
				}
			})
		},
		OnStored: func(rec domain.WinnerSubmission) {
			r.metrics.ObserveSubmission(metrics.SubmitStored)
			r.background(func(ctx context.Context) {
				if r.audit != nil {
					r.audit.LogStored(ctx, sessionID, r.collection, rec)
				}
				if r.notifier != nil {
					r.notifier.NotifyNewWinner(ctx, r.collection, rec)
				}
			})
		},
		OnStoreFailed: func(rec domain.WinnerSubmission, err error) {
			r.metrics.ObserveSubmission(metrics.SubmitFailed)
			r.background(func(ctx context.Context) {
				if r.audit != nil {
					r.audit.LogStoreFailed(ctx, sessionID, rec, err)
				}
			})
		},
	}
}

func (r *EventRecorder) background(fn func(ctx context.Context)) {
	if r.audit == nil && r.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic in session side effect", "panic", p)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// TimedStore замеряет длительность сохранения победителя
type TimedStore struct {
	next    session.Store
	metrics *metrics.Metrics
}

func NewTimedStore(next session.Store, m *metrics.Metrics) *TimedStore {
	return &TimedStore{next: next, metrics: m}
}

func (s *TimedStore) Add(ctx context.Context, collection string, rec domain.WinnerSubmission) error {
	defer s.metrics.ObserveStore(time.Now())
	return s.next.Add(ctx, collection, rec)
}
