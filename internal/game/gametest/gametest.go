// Package gametest содержит детерминированные планировщик и очередь для тестов движка и сессий.
package gametest

import (
	"sync"
	"time"
)

// Scheduler - ручной планировщик: время двигается только через Advance.
// Не потокобезопасен, вызывается из горутины теста.
type Scheduler struct {
	now   time.Duration
	tasks []*task
	// сколько раз взводился периодический источник
	Armed int
}

type task struct {
	at        time.Duration
	period    time.Duration
	fn        func()
	cancelled bool
}

func (s *Scheduler) Every(d time.Duration, fn func()) func() {
	s.Armed++
	t := &task{at: s.now + d, period: d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

func (s *Scheduler) After(d time.Duration, fn func()) func() {
	t := &task{at: s.now + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

// Advance выполняет все задачи, срок которых наступает в пределах d, по порядку
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		var next *task
		for _, t := range s.tasks {
			if t.cancelled || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		s.now = next.at
		if next.period > 0 {
			next.at += next.period
		} else {
			next.cancelled = true
		}
		next.fn()
	}
	s.now = target
}

// Pending - число активных разовых задач
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled && t.period == 0 {
			n++
		}
	}
	return n
}

// Queue накапливает отправленные функции до Drain, как очередь событий владельца
type Queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// Drain выполняет очередь, включая функции, добавленные во время выполнения
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.fns) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.fns[0]
		q.fns = q.fns[1:]
		q.mu.Unlock()
		fn()
		n++
	}
}
