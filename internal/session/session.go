package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"memory_promo/internal/domain"
)

var ErrSessionClosed = errors.New("session closed")

const inboxSize = 64

// Session - актор одной игровой сессии. Все изменения контроллера
// выполняются в горутине Run, включая колбэки таймеров и результат сохранения.
type Session struct {
	ID string

	ctl   *Controller
	inbox chan func()
	done  chan struct{}
	once  sync.Once
	log   *slog.Logger
}

// New создает сессию; dispatch в deps подменяется на очередь актора
func New(id string, cfg Config, deps Deps) *Session {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	s := &Session{
		ID:    id,
		inbox: make(chan func(), inboxSize),
		done:  make(chan struct{}),
		log:   deps.Log.With("session_id", id),
	}
	deps.Log = s.log
	deps.Dispatch = s.dispatch
	s.ctl = NewController(cfg, deps)
	return s
}

// Run обслуживает очередь до закрытия сессии или отмены ctx
func (s *Session) Run(ctx context.Context) {
	s.ctl.Start()
	defer s.ctl.Teardown()

	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		}
	}
}

// Close останавливает актор; повторные вызовы безопасны
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.log.Debug("session closed")
	})
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) dispatch(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

// call выполняет fn в горутине актора и ждет результат
func (s *Session) call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- func() { reply <- fn() }:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flip - клик по карте; false, если клик отклонен
func (s *Session) Flip(ctx context.Context, index int) (bool, error) {
	var ok bool
	err := s.call(ctx, func() error {
		ok = s.ctl.Activate(index)
		return nil
	})
	return ok, err
}

func (s *Session) ClaimPrize(ctx context.Context) error {
	return s.call(ctx, s.ctl.ClaimPrize)
}

func (s *Session) Submit(ctx context.Context, form domain.ClaimForm) error {
	return s.call(ctx, func() error { return s.ctl.Submit(form) })
}

func (s *Session) PlayAgain(ctx context.Context) error {
	return s.call(ctx, s.ctl.PlayAgain)
}

func (s *Session) ChooseProduct(ctx context.Context) error {
	return s.call(ctx, s.ctl.ChooseProduct)
}

func (s *Session) PhoneInput(ctx context.Context, raw string) error {
	return s.call(ctx, func() error {
		s.ctl.PhoneInput(raw)
		return nil
	})
}

func (s *Session) PhonePaste(ctx context.Context, raw string) error {
	return s.call(ctx, func() error {
		s.ctl.PhonePaste(raw)
		return nil
	})
}

// State возвращает снимок сессии
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.call(ctx, func() error {
		st = s.ctl.State()
		return nil
	})
	return st, err
}
