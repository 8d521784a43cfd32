package game

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"memory_promo/internal/domain"
	"memory_promo/internal/game/gametest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingView struct {
	states map[int]domain.CardState
	faces  map[int]string
	orders map[int]int
	timer  string
	moves  string
}

func newRecordingView() *recordingView {
	return &recordingView{states: map[int]domain.CardState{}, faces: map[int]string{}, orders: map[int]int{}}
}

func (v *recordingView) SetCardState(i int, st domain.CardState, face string) {
	v.states[i] = st
	v.faces[i] = face
}
func (v *recordingView) SetCardOrder(i, order int) { v.orders[i] = order }
func (v *recordingView) SetTimerText(s string)     { v.timer = s }
func (v *recordingView) SetMovesText(s string)     { v.moves = s }

type recordingAudio struct{ cues []domain.Cue }

func (a *recordingAudio) Play(c domain.Cue) { a.cues = append(a.cues, c) }

type boardFixture struct {
	board    *Board
	view     *recordingView
	audio    *recordingAudio
	sched    *gametest.Scheduler
	outcomes []domain.Outcome
}

func newBoardFixture(t *testing.T, rules Rules) *boardFixture {
	t.Helper()
	require.NoError(t, rules.Validate())
	f := &boardFixture{
		view:  newRecordingView(),
		audio: &recordingAudio{},
		sched: &gametest.Scheduler{},
	}
	f.board = NewBoard(rules, f.view, f.audio, f.sched, Immediate, rand.New(rand.NewSource(7)))
	f.board.OnOutcome(func(o domain.Outcome) { f.outcomes = append(f.outcomes, o) })
	f.board.Reset()
	return f
}

// k-я пара текущей раздачи по возрастанию меньшего индекса
func (f *boardFixture) pair(t *testing.T, k int) (int, int) {
	t.Helper()
	for i := 0; i < 2*f.board.Rules().TotalPairs(); i++ {
		if j := f.board.Partner(i); j > i {
			if k == 0 {
				return i, j
			}
			k--
		}
	}
	require.FailNow(t, "no such pair")
	return -1, -1
}

// две карты из разных пар
func (f *boardFixture) unpaired(t *testing.T) (int, int) {
	t.Helper()
	for j := 1; j < 2*f.board.Rules().TotalPairs(); j++ {
		if f.board.Partner(0) != j {
			return 0, j
		}
	}
	require.FailNow(t, "deck has a single pair")
	return -1, -1
}

// любая карта, кроме перечисленных
func (f *boardFixture) another(except ...int) int {
	for i := 0; ; i++ {
		skip := false
		for _, e := range except {
			skip = skip || e == i
		}
		if !skip {
			return i
		}
	}
}

func (f *boardFixture) matchPair(t *testing.T, k int) {
	t.Helper()
	a, b := f.pair(t, k)
	require.True(t, f.board.Activate(a))
	require.True(t, f.board.Activate(b))
}

func (f *boardFixture) mismatch(t *testing.T) {
	t.Helper()
	a, b := f.unpaired(t)
	require.True(t, f.board.Activate(a))
	require.True(t, f.board.Activate(b))
	f.sched.Advance(f.board.Rules().RevealDelay)
}

func TestBoard_ResetRendersFreshState(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	assert.Equal(t, domain.PhaseIdle, f.board.Phase())
	assert.Equal(t, "Jogadas: 0/125", f.view.moves)
	assert.Equal(t, "Tempo: 05:00", f.view.timer)
	require.Len(t, f.view.states, 12)
	for i := 0; i < 12; i++ {
		assert.Equal(t, domain.CardFaceDown, f.view.states[i])
		assert.GreaterOrEqual(t, f.view.orders[i], 0)
		assert.Less(t, f.view.orders[i], 12)
	}
	assert.False(t, f.board.TimerRunning())
}

func TestBoard_MatchingPair(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	a, b := f.pair(t, 0)
	f.matchPair(t, 0)

	assert.Equal(t, 1, f.board.Moves())
	assert.Equal(t, 1, f.board.Matched())
	assert.False(t, f.board.Locked(), "board must unlock immediately after a match")
	assert.Empty(t, f.board.Selection())
	assert.Equal(t, domain.CardMatched, f.view.states[a])
	assert.Equal(t, domain.CardMatched, f.view.states[b])
	assert.NotEmpty(t, f.view.faces[a])
	assert.Equal(t, f.view.faces[a], f.view.faces[b])
	assert.Equal(t, "Jogadas: 1/125", f.view.moves)
	assert.Equal(t, []domain.Cue{domain.CueFlip, domain.CueFlip, domain.CueMatch}, f.audio.cues)

	// совпавшие карты больше не принимают клики
	assert.False(t, f.board.Activate(a))
	assert.False(t, f.board.Activate(b))
}

func TestBoard_MismatchRevealDelay(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())
	a, b := f.unpaired(t)

	require.True(t, f.board.Activate(a))
	require.True(t, f.board.Activate(b))

	assert.Equal(t, 1, f.board.Moves())
	assert.True(t, f.board.Locked())
	assert.Equal(t, domain.CardFaceUp, f.view.states[a])
	assert.Equal(t, domain.CardFaceUp, f.view.states[b])
	assert.NotEqual(t, f.view.faces[a], f.view.faces[b])
	assert.Len(t, f.board.Selection(), 2)

	// клики во время показа отклоняются
	assert.False(t, f.board.Activate(f.another(a, b)))

	f.sched.Advance(1499 * time.Millisecond)
	assert.True(t, f.board.Locked())

	f.sched.Advance(time.Millisecond)
	assert.False(t, f.board.Locked())
	assert.Equal(t, domain.CardFaceDown, f.view.states[a])
	assert.Equal(t, domain.CardFaceDown, f.view.states[b])
	assert.Empty(t, f.view.faces[a], "closed card must not carry its face")
	assert.Empty(t, f.board.Selection())
	assert.Equal(t, 1, f.board.Moves())
}

func TestBoard_SameCardTwiceIsIgnored(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	require.True(t, f.board.Activate(3))
	assert.False(t, f.board.Activate(3))
	assert.Equal(t, 0, f.board.Moves())
	assert.Equal(t, []int{3}, f.board.Selection())
}

func TestBoard_OutOfRangeCard(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())
	assert.False(t, f.board.Activate(-1))
	assert.False(t, f.board.Activate(12))
	assert.Equal(t, domain.PhaseIdle, f.board.Phase())
}

func TestBoard_TimerStartsOnFirstPickOnly(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	a, b := f.unpaired(t)
	require.True(t, f.board.Activate(a))
	assert.Equal(t, domain.PhaseInProgress, f.board.Phase())
	assert.True(t, f.board.TimerRunning())

	require.True(t, f.board.Activate(b))
	f.sched.Advance(2 * time.Second)
	f.matchPair(t, 2)

	assert.Equal(t, 1, f.sched.Armed, "timer must be armed exactly once")
	assert.Equal(t, 298, f.board.TimeRemaining())
	assert.Equal(t, "Tempo: 04:58", f.view.timer)
}

func TestBoard_WinStopsTimer(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	for pair := 0; pair < 6; pair++ {
		f.matchPair(t, pair)
		f.sched.Advance(time.Second)
	}

	require.Len(t, f.outcomes, 1)
	out := f.outcomes[0]
	assert.True(t, out.Won)
	assert.Equal(t, domain.ReasonAllPairsMatched, out.Reason)
	assert.Equal(t, MsgWin, out.Message)
	assert.Equal(t, 6, out.Moves)
	assert.Equal(t, domain.PhaseWon, f.board.Phase())
	assert.True(t, f.board.Locked())
	assert.False(t, f.board.TimerRunning())

	left := f.board.TimeRemaining()
	f.sched.Advance(time.Minute)
	assert.Equal(t, left, f.board.TimeRemaining(), "no ticks after terminal transition")
	assert.Len(t, f.outcomes, 1)
}

func TestBoard_MoveLimitLoses(t *testing.T) {
	rules := DefaultRules()
	rules.MaxMoves = 3
	f := newBoardFixture(t, rules)

	f.mismatch(t)
	f.mismatch(t)
	a, b := f.unpaired(t)
	require.True(t, f.board.Activate(a))
	require.True(t, f.board.Activate(b))

	require.Len(t, f.outcomes, 1)
	assert.False(t, f.outcomes[0].Won)
	assert.Equal(t, domain.ReasonMoveLimit, f.outcomes[0].Reason)
	assert.Equal(t, "Você atingiu o limite de 3 jogadas! Você perdeu.", f.outcomes[0].Message)
	assert.Equal(t, domain.PhaseLost, f.board.Phase())
	assert.False(t, f.board.TimerRunning())

	// отложенное закрытие пары отменено, стол остается заблокированным
	f.sched.Advance(5 * time.Second)
	assert.True(t, f.board.Locked())
	assert.False(t, f.board.Activate(f.another(a, b)))
}

func TestBoard_MoveLimitOnMatchingMoveStillLoses(t *testing.T) {
	rules := DefaultRules()
	rules.MaxMoves = 2
	f := newBoardFixture(t, rules)

	f.mismatch(t)
	f.matchPair(t, 0)

	require.Len(t, f.outcomes, 1)
	assert.Equal(t, domain.ReasonMoveLimit, f.outcomes[0].Reason)
	assert.Equal(t, 1, f.board.Matched())
}

func TestBoard_WinTakesPrecedenceOverMoveLimit(t *testing.T) {
	rules := DefaultRules()
	rules.Deck = []string{"react", "vue"}
	rules.MaxMoves = 2
	f := newBoardFixture(t, rules)

	f.matchPair(t, 0)
	f.matchPair(t, 1)

	require.Len(t, f.outcomes, 1)
	assert.True(t, f.outcomes[0].Won)
	assert.Equal(t, domain.PhaseWon, f.board.Phase())
}

func TestBoard_TimeExpiry(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	require.True(t, f.board.Activate(0))
	f.sched.Advance(299 * time.Second)
	assert.Empty(t, f.outcomes)
	assert.Equal(t, "Tempo: 00:01", f.view.timer)

	f.sched.Advance(time.Second)
	require.Len(t, f.outcomes, 1)
	assert.Equal(t, domain.ReasonTimeExpired, f.outcomes[0].Reason)
	assert.Equal(t, MsgTimeUp, f.outcomes[0].Message)
	assert.Equal(t, "Tempo: 00:00", f.view.timer)
	assert.Equal(t, 0, f.board.TimeRemaining())
	assert.False(t, f.board.Activate(2))
}

func TestBoard_TimeExpiryDuringMismatchReveal(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())
	a, b := f.unpaired(t)

	require.True(t, f.board.Activate(a))
	f.sched.Advance(299*time.Second + 500*time.Millisecond)
	require.True(t, f.board.Activate(b))
	require.True(t, f.board.Locked())

	// тик на 300-й секунде приходит раньше закрытия пары
	f.sched.Advance(2 * time.Second)

	require.Len(t, f.outcomes, 1)
	assert.Equal(t, domain.ReasonTimeExpired, f.outcomes[0].Reason)
	assert.True(t, f.board.Locked())
	assert.Equal(t, domain.CardFaceUp, f.view.states[a], "cancelled reveal must not touch the board")
}

func TestBoard_ResetAfterLoss(t *testing.T) {
	rules := DefaultRules()
	rules.MaxMoves = 1
	f := newBoardFixture(t, rules)

	require.True(t, f.board.Activate(0))
	require.True(t, f.board.Activate(2))
	require.Equal(t, domain.PhaseLost, f.board.Phase())

	f.board.Reset()

	assert.Equal(t, domain.PhaseIdle, f.board.Phase())
	assert.Equal(t, 0, f.board.Moves())
	assert.Equal(t, 0, f.board.Matched())
	assert.False(t, f.board.Locked())
	assert.Equal(t, 300, f.board.TimeRemaining())
	assert.Equal(t, domain.CardFaceDown, f.view.states[0])
	assert.Equal(t, domain.CardFaceDown, f.view.states[2])

	// новая партия снова запускает таймер
	require.True(t, f.board.Activate(4))
	assert.True(t, f.board.TimerRunning())
	assert.Equal(t, 2, f.sched.Armed)
}

func TestBoard_ResetDropsPendingReveal(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())
	a, b := f.unpaired(t)

	require.True(t, f.board.Activate(a))
	require.True(t, f.board.Activate(b))
	f.board.Reset()
	c := f.another(a, b)
	require.True(t, f.board.Activate(c))

	f.sched.Advance(2 * time.Second)
	assert.Equal(t, []int{c}, f.board.Selection())
	assert.Equal(t, domain.CardFaceUp, f.view.states[c])
}

func TestBoard_SelectionNeverExceedsTwo(t *testing.T) {
	rules := DefaultRules()
	rules.MaxMoves = 40
	f := newBoardFixture(t, rules)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 2000; step++ {
		switch rng.Intn(4) {
		case 0:
			f.sched.Advance(time.Duration(rng.Intn(2000)) * time.Millisecond)
		default:
			f.board.Activate(rng.Intn(12))
		}

		require.LessOrEqual(t, len(f.board.Selection()), 2)
		faceUp := 0
		for _, c := range f.board.Snapshot().Cards {
			if c.State == domain.CardFaceUp {
				faceUp++
			}
		}
		require.LessOrEqual(t, faceUp, 2)
		require.LessOrEqual(t, f.board.Moves(), rules.MaxMoves)
		require.LessOrEqual(t, f.board.Matched(), rules.TotalPairs())
		require.LessOrEqual(t, len(f.outcomes), 1)

		if f.board.Phase().Terminal() {
			f.board.Reset()
			f.outcomes = nil
		}
	}
}

func TestBoard_Teardown(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())
	a, b := f.unpaired(t)

	require.True(t, f.board.Activate(a))
	require.True(t, f.board.Activate(b))
	f.board.Teardown()

	f.sched.Advance(time.Hour)
	assert.Empty(t, f.outcomes)
	assert.False(t, f.board.TimerRunning())
	assert.Equal(t, domain.CardFaceUp, f.view.states[a])
	assert.False(t, f.board.Activate(f.another(a, b)))
}

func layoutOf(b *Board) []int {
	partners := make([]int, 0, 2*b.Rules().TotalPairs())
	for i := 0; i < 2*b.Rules().TotalPairs(); i++ {
		partners = append(partners, b.Partner(i))
	}
	return partners
}

func TestBoard_ResetRedealsPairs(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	fixed := make([]int, 12)
	for i := range fixed {
		fixed[i] = i ^ 1
	}

	layouts := map[string]bool{}
	for round := 0; round < 5; round++ {
		layout := layoutOf(f.board)
		for i, j := range layout {
			require.NotEqual(t, i, j)
			require.Equal(t, i, layout[j], "pairing must be symmetric")
		}
		raw, err := json.Marshal(layout)
		require.NoError(t, err)
		layouts[string(raw)] = true
		f.board.Reset()
	}

	assert.Greater(t, len(layouts), 1, "each game must deal a new layout")
	for raw := range layouts {
		want, _ := json.Marshal(fixed)
		assert.NotEqual(t, string(want), raw)
	}

	// разные источники случайности дают разные раздачи
	other := NewBoard(DefaultRules(), newRecordingView(), &recordingAudio{}, &gametest.Scheduler{}, Immediate, rand.New(rand.NewSource(99)))
	other.Reset()
	g := newBoardFixture(t, DefaultRules())
	assert.NotEqual(t, layoutOf(g.board), layoutOf(other))
}

func TestBoard_SnapshotHidesClosedFaces(t *testing.T) {
	f := newBoardFixture(t, DefaultRules())

	raw, err := json.Marshal(f.board.Snapshot())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"face":`)
	assert.NotContains(t, string(raw), "group_key")
	for _, key := range DefaultDeck {
		assert.NotContains(t, string(raw), key)
	}

	a, b := f.pair(t, 0)
	require.True(t, f.board.Activate(a))
	snap := f.board.Snapshot()
	assert.NotEmpty(t, snap.Cards[a].Face)
	assert.Empty(t, snap.Cards[b].Face)
}

func TestRules_Validate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.Deck = []string{"react", "react"}
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Deck = nil
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.MaxMoves = 0
	assert.Error(t, r.Validate())
}

func TestTimerText(t *testing.T) {
	assert.Equal(t, "Tempo: 05:00", TimerText(300))
	assert.Equal(t, "Tempo: 00:59", TimerText(59))
	assert.Equal(t, "Tempo: 00:00", TimerText(-3))
}
