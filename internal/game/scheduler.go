package game

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler взводит периодические и отложенные вызовы.
// Колбэки выполняются в чужой горутине; владелец сессии сам переносит их в свой цикл через Dispatch.
type Scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
	After(d time.Duration, fn func()) (cancel func())
}

// Dispatch ставит функцию в очередь горутины-владельца состояния
type Dispatch func(fn func())

// Immediate выполняет функцию сразу, для кода без собственного цикла событий
func Immediate(fn func()) { fn() }

// ClockScheduler - Scheduler поверх clock.Clock
type ClockScheduler struct {
	clock clock.Clock
}

// NewClockScheduler создает планировщик; nil означает реальные часы
func NewClockScheduler(c clock.Clock) *ClockScheduler {
	if c == nil {
		c = clock.New()
	}
	return &ClockScheduler{clock: c}
}

// Every вызывает fn каждые d до вызова stop
func (s *ClockScheduler) Every(d time.Duration, fn func()) func() {
	ticker := s.clock.Ticker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// After вызывает fn один раз через d, если не отменено раньше
func (s *ClockScheduler) After(d time.Duration, fn func()) func() {
	t := s.clock.AfterFunc(d, fn)
	return func() { t.Stop() }
}
