package game

import (
	"math/rand"

	"memory_promo/internal/domain"
)

// View - часть поверхности отображения, которой пользуется стол
type View interface {
	// face передается только для открытых и совпавших карт
	SetCardState(index int, state domain.CardState, face string)
	SetCardOrder(index, order int)
	SetTimerText(text string)
	SetMovesText(text string)
}

// Audio проигрывает звуковые сигналы, ошибки воспроизведения игнорируются
type Audio interface {
	Play(cue domain.Cue)
}

// Board - движок сопоставления карт.
// Не потокобезопасен: все вызовы, включая колбэки таймеров, идут через Dispatch владельца.
type Board struct {
	rules    Rules
	cards    []*domain.Card
	view     View
	audio    Audio
	sched    Scheduler
	dispatch Dispatch
	rng      *rand.Rand
	timer    *Timer

	first   *domain.Card
	second  *domain.Card
	moves   int
	matched int
	locked  bool
	phase   domain.Phase

	// поколение партии: отложенные колбэки старой партии отбрасываются
	gen          uint64
	cancelReveal func()

	onOutcome func(domain.Outcome)
}

// NewBoard создает по две карты на каждый ключ колоды.
// Раздача ключей, отрисовка и перемешивание происходят в Reset.
func NewBoard(rules Rules, view View, audio Audio, sched Scheduler, dispatch Dispatch, rng *rand.Rand) *Board {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	b := &Board{
		rules:    rules,
		view:     view,
		audio:    audio,
		sched:    sched,
		dispatch: dispatch,
		rng:      rng,
		phase:    domain.PhaseIdle,
	}
	for i := 0; i < 2*len(rules.Deck); i++ {
		b.cards = append(b.cards, &domain.Card{
			Index:    i,
			GroupKey: rules.Deck[i/2],
			State:    domain.CardFaceDown,
			Order:    i,
		})
	}

	b.timer = NewTimer(rules.TimeBudgetSeconds, sched, dispatch)
	b.timer.OnTick(func(remaining int) {
		b.view.SetTimerText(TimerText(remaining))
	})
	b.timer.OnExpire(func() {
		b.finish(domain.Outcome{Won: false, Reason: domain.ReasonTimeExpired, Message: MsgTimeUp})
	})
	return b
}

// OnOutcome задает получателя итога партии
func (b *Board) OnOutcome(fn func(domain.Outcome)) { b.onOutcome = fn }

// Activate обрабатывает клик по карте. Возвращает false, если клик отклонен.
func (b *Board) Activate(index int) bool {
	if index < 0 || index >= len(b.cards) {
		return false
	}
	if b.locked || b.phase.Terminal() {
		return false
	}
	if b.moves >= b.rules.MaxMoves || b.timer.Remaining() <= 0 {
		return false
	}
	card := b.cards[index]
	if card == b.first || card.State != domain.CardFaceDown {
		return false
	}

	card.State = domain.CardFaceUp
	b.render(card)
	b.audio.Play(domain.CueFlip)

	if b.first == nil {
		b.first = card
		// таймер стартует с первой открытой карты партии
		if !b.timer.Started() {
			b.phase = domain.PhaseInProgress
			b.timer.Start()
		}
		return true
	}

	b.second = card
	b.moves++
	b.view.SetMovesText(MovesText(b.moves, b.rules.MaxMoves))
	b.resolve()

	// победа на этом же ходу важнее лимита ходов
	if !b.phase.Terminal() && b.moves >= b.rules.MaxMoves {
		b.finish(domain.Outcome{Won: false, Reason: domain.ReasonMoveLimit, Message: MoveLimitMessage(b.rules.MaxMoves)})
	}
	return true
}

// сравнивает две открытые карты
func (b *Board) resolve() {
	if b.first.GroupKey == b.second.GroupKey {
		b.disableCards()
		return
	}
	b.unflipCards()
}

// пара найдена: карты выходят из игры
func (b *Board) disableCards() {
	b.first.State = domain.CardMatched
	b.second.State = domain.CardMatched
	b.render(b.first)
	b.render(b.second)
	b.audio.Play(domain.CueMatch)

	b.matched++
	if b.matched == b.rules.TotalPairs() {
		b.finish(domain.Outcome{Won: true, Reason: domain.ReasonAllPairsMatched, Message: MsgWin})
	}
	b.resetBoard()
}

// пара не совпала: стол блокируется, карты закрываются после задержки
func (b *Board) unflipCards() {
	b.locked = true
	gen := b.gen
	first, second := b.first, b.second
	b.cancelReveal = b.sched.After(b.rules.RevealDelay, func() {
		b.dispatch(func() { b.hidePair(gen, first, second) })
	})
}

func (b *Board) hidePair(gen uint64, first, second *domain.Card) {
	if gen != b.gen || b.phase.Terminal() {
		return
	}
	b.cancelReveal = nil
	for _, c := range []*domain.Card{first, second} {
		c.State = domain.CardFaceDown
		b.render(c)
	}
	b.resetBoard()
}

// сбрасывает текущий выбор; после завершения партии стол остается заблокированным
func (b *Board) resetBoard() {
	b.first, b.second = nil, nil
	b.locked = b.phase.Terminal()
}

// переход в конечную фазу. Таймер останавливается до любых других эффектов.
func (b *Board) finish(outcome domain.Outcome) {
	if b.phase.Terminal() {
		return
	}
	b.timer.Stop()
	if outcome.Won {
		b.phase = domain.PhaseWon
	} else {
		b.phase = domain.PhaseLost
	}
	b.locked = true
	if b.cancelReveal != nil {
		b.cancelReveal()
		b.cancelReveal = nil
	}

	outcome.Moves = b.moves
	outcome.Matched = b.matched
	outcome.TimeLeft = b.timer.Remaining()
	if b.onOutcome != nil {
		b.onOutcome(outcome)
	}
}

// Reset начинает новую партию: счетчики, таймер, выбор, новая раздача ключей,
// все карты рубашкой вверх и новое перемешивание
func (b *Board) Reset() {
	b.gen++
	if b.cancelReveal != nil {
		b.cancelReveal()
		b.cancelReveal = nil
	}
	b.timer.Reset()

	b.moves = 0
	b.matched = 0
	b.first, b.second = nil, nil
	b.locked = false
	b.phase = domain.PhaseIdle

	b.view.SetMovesText(MovesText(0, b.rules.MaxMoves))
	b.view.SetTimerText(TimerText(b.timer.Remaining()))
	b.deal()
	for _, c := range b.cards {
		c.State = domain.CardFaceDown
		b.render(c)
	}
	b.shuffle()
}

// раздает ключи пар по индексам карт заново в каждой партии
func (b *Board) deal() {
	keys := make([]string, 0, len(b.cards))
	for _, key := range b.rules.Deck {
		keys = append(keys, key, key)
	}
	b.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for i, c := range b.cards {
		c.GroupKey = keys[i]
	}
}

func (b *Board) render(c *domain.Card) {
	b.view.SetCardState(c.Index, c.State, faceOf(c))
}

// лицо карты видно только после открытия
func faceOf(c *domain.Card) string {
	if c.State == domain.CardFaceDown {
		return ""
	}
	return c.GroupKey
}

// Каждой карте независимо назначается случайная позиция; совпадения позиций допустимы
func (b *Board) shuffle() {
	n := len(b.cards)
	for _, c := range b.cards {
		c.Order = b.rng.Intn(n)
		b.view.SetCardOrder(c.Index, c.Order)
	}
}

// Teardown останавливает таймер и отменяет отложенные колбэки без отрисовки
func (b *Board) Teardown() {
	b.gen++
	b.timer.Stop()
	if b.cancelReveal != nil {
		b.cancelReveal()
		b.cancelReveal = nil
	}
	b.locked = true
}

// Карта в снимке стола; Face пуст, пока карта закрыта
type CardView struct {
	Index int              `json:"index"`
	State domain.CardState `json:"state"`
	Order int              `json:"order"`
	Face  string           `json:"face,omitempty"`
}

// Состояние стола для синхронизации клиента
type Snapshot struct {
	Phase         domain.Phase `json:"phase"`
	Moves         int          `json:"moves"`
	MaxMoves      int          `json:"max_moves"`
	MatchedPairs  int          `json:"matched_pairs"`
	TotalPairs    int          `json:"total_pairs"`
	TimeRemaining int          `json:"time_remaining"`
	Locked        bool         `json:"locked"`
	Selection     []int        `json:"selection"`
	Cards         []CardView   `json:"cards"`
}

// Snapshot копирует текущее состояние
func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		Phase:         b.phase,
		Moves:         b.moves,
		MaxMoves:      b.rules.MaxMoves,
		MatchedPairs:  b.matched,
		TotalPairs:    b.rules.TotalPairs(),
		TimeRemaining: b.timer.Remaining(),
		Locked:        b.locked,
		Selection:     b.Selection(),
		Cards:         make([]CardView, 0, len(b.cards)),
	}
	for _, c := range b.cards {
		s.Cards = append(s.Cards, CardView{Index: c.Index, State: c.State, Order: c.Order, Face: faceOf(c)})
	}
	return s
}

// Selection - индексы открытых несовпавших карт текущего хода
func (b *Board) Selection() []int {
	sel := make([]int, 0, 2)
	if b.first != nil {
		sel = append(sel, b.first.Index)
	}
	if b.second != nil {
		sel = append(sel, b.second.Index)
	}
	return sel
}

// Partner - индекс второй карты той же пары в текущей раздаче, -1 для неверного индекса
func (b *Board) Partner(index int) int {
	if index < 0 || index >= len(b.cards) {
		return -1
	}
	key := b.cards[index].GroupKey
	for _, c := range b.cards {
		if c.Index != index && c.GroupKey == key {
			return c.Index
		}
	}
	return -1
}

func (b *Board) Phase() domain.Phase { return b.phase }
func (b *Board) Moves() int          { return b.moves }
func (b *Board) Matched() int        { return b.matched }
func (b *Board) Locked() bool        { return b.locked }
func (b *Board) Rules() Rules        { return b.rules }
func (b *Board) TimeRemaining() int  { return b.timer.Remaining() }
func (b *Board) TimerRunning() bool  { return b.timer.Running() }
