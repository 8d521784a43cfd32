package game

import "time"

// Timer - обратный отсчет партии, тикает раз в секунду.
// Методы вызываются только из горутины-владельца.
type Timer struct {
	budget    int
	remaining int
	sched     Scheduler
	dispatch  Dispatch

	started bool // запускался в этой партии
	running bool
	gen     uint64 // тики от остановленного источника отбрасываются
	stop    func()

	onTick   func(remaining int)
	onExpire func()
}

// NewTimer создает таймер на budget секунд
func NewTimer(budget int, sched Scheduler, dispatch Dispatch) *Timer {
	return &Timer{
		budget:    budget,
		remaining: budget,
		sched:     sched,
		dispatch:  dispatch,
	}
}

// OnTick задает обработчик каждого тика
func (t *Timer) OnTick(fn func(remaining int)) { t.onTick = fn }

// OnExpire задает обработчик истечения времени
func (t *Timer) OnExpire(fn func()) { t.onExpire = fn }

// Start запускает отсчет. Повторный запуск в той же партии игнорируется.
func (t *Timer) Start() bool {
	if t.started {
		return false
	}
	t.started = true
	t.running = true
	gen := t.gen
	t.stop = t.sched.Every(time.Second, func() {
		t.dispatch(func() { t.tick(gen) })
	})
	return true
}

func (t *Timer) tick(gen uint64) {
	if gen != t.gen || !t.running {
		return
	}
	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
	if t.remaining == 0 && t.onExpire != nil {
		t.onExpire()
	}
}

// Stop отменяет источник тиков, безопасен при повторном вызове
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.running = false
	t.gen++
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

// Reset останавливает таймер и восстанавливает полный бюджет для новой партии
func (t *Timer) Reset() {
	t.Stop()
	t.gen++
	t.started = false
	t.remaining = t.budget
}

// Remaining - оставшиеся секунды
func (t *Timer) Remaining() int { return t.remaining }

// Running - идет ли отсчет
func (t *Timer) Running() bool { return t.running }

// Started - запускался ли таймер в текущей партии
func (t *Timer) Started() bool { return t.started }
