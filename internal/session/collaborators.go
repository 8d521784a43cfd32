package session

import (
	"context"

	"memory_promo/internal/domain"
	"memory_promo/internal/game"
)

// Панели интерфейса
type Panel string

const (
	PanelResult Panel = "result"
	PanelForm   Panel = "form"
)

// Кнопки на панели результата
type Action string

const (
	ActionClaim         Action = "claim"
	ActionChooseProduct Action = "choose_product"
	ActionPlayAgain     Action = "play_again"
)

// Surface - поверхность отображения, реализуется транспортом клиента
type Surface interface {
	game.View
	ShowPanel(p Panel)
	HidePanel(p Panel)
	ShowAction(a Action)
	HideAction(a Action)
	SetResultMessage(text string)
	SetFieldError(f domain.Field, message string)
	SetPhoneInput(value string)
}

// Effects запускает визуальные эффекты, ответ не ожидается
type Effects interface {
	Confetti(b domain.Burst)
}

// Navigator перенаправляет браузер
type Navigator interface {
	Redirect(path string)
}

// Store сохраняет данные победителя; любая ошибка трактуется одинаково
type Store interface {
	Add(ctx context.Context, collection string, rec domain.WinnerSubmission) error
}

// Hooks - наблюдатели за жизненным циклом сессии (метрики, аудит, уведомления)
type Hooks struct {
	OnStart       func()
	OnOutcome     func(domain.Outcome)
	OnClaim       func()
	OnStored      func(rec domain.WinnerSubmission)
	OnStoreFailed func(rec domain.WinnerSubmission, err error)
}
