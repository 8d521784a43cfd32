package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memory_promo/internal/domain"
	"memory_promo/internal/game"
	"memory_promo/internal/repository"
	"memory_promo/internal/service"
	"memory_promo/internal/session"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testServer struct {
	srv    *httptest.Server
	hub    *Hub
	tokens *service.TokenService
	store  *repository.MemoryWinnerStore
	mock   *clock.Mock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mock := clock.NewMock()
	store := repository.NewMemoryWinnerStore()
	tokens, err := service.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	hub := NewHub(HubDeps{
		Session:   session.DefaultConfig(),
		Store:     store,
		Scheduler: game.NewClockScheduler(mock),
	})

	r := gin.New()
	r.GET("/ws", NewWSHandler(hub, tokens, "").HandleWS())
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return &testServer{srv: srv, hub: hub, tokens: tokens, store: store, mock: mock}
}

func (ts *testServer) url(token string) string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=" + token
}

func (ts *testServer) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	token, _, err := ts.tokens.Issue(sessionID)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(ts.url(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, in Inbound) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
}

// читает сообщения, пока match не вернет true
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(wireMessage) bool {
	return func(m wireMessage) bool { return m.Type == typ }
}

func visibility(kind, name string, visible bool) func(wireMessage) bool {
	return func(m wireMessage) bool {
		if m.Type != kind {
			return false
		}
		var p visibilityPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return false
		}
		got := string(p.Panel)
		if kind == MsgAction {
			got = string(p.Action)
		}
		return got == name && p.Visible == visible
	}
}

// sync проходит через очередь сессии: после ответа все предыдущие команды обработаны
func syncState(t *testing.T, conn *websocket.Conn) session.State {
	t.Helper()
	send(t, conn, Inbound{Type: InSync})
	msg := readUntil(t, conn, ofType(MsgState))
	var st session.State
	require.NoError(t, json.Unmarshal(msg.Payload, &st))
	return st
}

// повторяет sync, пока состояние не удовлетворит pred
func awaitState(t *testing.T, conn *websocket.Conn, pred func(session.State) bool) session.State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := syncState(t, conn)
		if pred(st) {
			return st
		}
		require.True(t, time.Now().Before(deadline), "state not reached, phase %s", st.Phase)
		time.Sleep(5 * time.Millisecond)
	}
}

func flip(i int) Inbound { return Inbound{Type: InFlip, Card: &i} }

// играет как человек: лица карт известны только после открытия
func playToWin(t *testing.T, ts *testServer, conn *websocket.Conn) session.State {
	t.Helper()
	n := 2 * len(game.DefaultDeck)
	faces := map[int]string{}
	matched := map[int]bool{}

	var st session.State
	flipPair := func(a, b int) {
		send(t, conn, flip(a))
		send(t, conn, flip(b))
		st = syncState(t, conn)
		for _, c := range st.Board.Cards {
			if c.Face != "" {
				faces[c.Index] = c.Face
			}
			if c.State == domain.CardMatched {
				matched[c.Index] = true
			}
		}
		if st.Phase == domain.PhaseInProgress && st.Board.Locked {
			ts.mock.Add(game.DefaultRevealDelay)
			st = awaitState(t, conn, func(s session.State) bool { return !s.Board.Locked })
		}
	}

	for i := 0; i+1 < n; i += 2 {
		if !matched[i] {
			flipPair(i, i+1)
		}
	}
	for a := 0; a < n; a++ {
		if matched[a] {
			continue
		}
		for b := a + 1; b < n; b++ {
			if !matched[b] && faces[a] != "" && faces[a] == faces[b] {
				flipPair(a, b)
				break
			}
		}
	}
	return st
}

func TestWS_WinClaimSubmitChooseProduct(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s-win")

	readUntil(t, conn, ofType(MsgReady))
	assert.Eventually(t, func() bool { return ts.hub.Connected("s-win") }, time.Second, 10*time.Millisecond)

	st := playToWin(t, ts, conn)
	require.Equal(t, domain.PhaseWon, st.Phase)
	assert.Equal(t, len(game.DefaultDeck), st.Board.MatchedPairs)
	assert.LessOrEqual(t, st.Board.Moves, 2*len(game.DefaultDeck))

	send(t, conn, Inbound{Type: InClaim})
	readUntil(t, conn, ofType(MsgConfetti))
	syncState(t, conn)

	ts.mock.Add(session.DefaultTransitionDelay)
	readUntil(t, conn, visibility(MsgPanel, string(session.PanelForm), true))

	send(t, conn, Inbound{Type: InSubmit, Name: "Maria Silva", Phone: "(11) 98765-4321", Email: "maria@example.com"})
	readUntil(t, conn, visibility(MsgPanel, string(session.PanelForm), false))
	syncState(t, conn)

	ts.mock.Add(session.DefaultTransitionDelay)
	readUntil(t, conn, visibility(MsgAction, string(session.ActionChooseProduct), true))

	send(t, conn, Inbound{Type: InChooseProduct})
	msg := readUntil(t, conn, ofType(MsgRedirect))
	var p map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, session.DefaultStorePath, p["path"])

	n, err := ts.store.Count(context.Background(), session.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWS_RejectsOutOfPhaseAndBadMessages(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s-bad")
	readUntil(t, conn, ofType(MsgReady))

	code := func() string {
		msg := readUntil(t, conn, ofType(MsgError))
		var p errorPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		return p.Code
	}

	send(t, conn, Inbound{Type: InClaim})
	assert.Equal(t, "not_won", code())

	send(t, conn, Inbound{Type: "dance"})
	assert.Equal(t, "unknown_type", code())

	send(t, conn, Inbound{Type: InFlip})
	assert.Equal(t, "bad_message", code())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "bad_message", code())
}

func TestWS_PhoneInputFormatting(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s-phone")
	readUntil(t, conn, ofType(MsgReady))

	send(t, conn, Inbound{Type: InPhoneInput, Value: "11987654321"})
	msg := readUntil(t, conn, ofType(MsgPhone))
	var p map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "(11) 98765-4321", p["value"])
}

func TestWS_HandshakeRejections(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(ts.url("garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn := ts.dial(t, "s-dup")
	readUntil(t, conn, ofType(MsgReady))

	token, _, err := ts.tokens.Issue("s-dup")
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(ts.url(token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWS_DisconnectUnregisters(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s-gone")
	readUntil(t, conn, ofType(MsgReady))
	require.Eventually(t, func() bool { return ts.hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return ts.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Shutdown(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s-shut")
	readUntil(t, conn, ofType(MsgReady))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.hub.Shutdown(ctx))
	assert.Equal(t, 0, ts.hub.Count())

	// новые сессии после остановки не принимаются
	_, err := ts.hub.Attach("s-late", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestWS_StateHidesClosedFaces(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s-faces")
	readUntil(t, conn, ofType(MsgReady))

	send(t, conn, Inbound{Type: InSync})
	msg := readUntil(t, conn, ofType(MsgState))
	assert.NotContains(t, string(msg.Payload), "group_key")
	assert.NotContains(t, string(msg.Payload), `"face":`)

	send(t, conn, flip(5))
	card := readUntil(t, conn, func(m wireMessage) bool {
		if m.Type != MsgCard {
			return false
		}
		var p cardPayload
		return json.Unmarshal(m.Payload, &p) == nil && p.Index == 5 && p.State == domain.CardFaceUp
	})
	var p cardPayload
	require.NoError(t, json.Unmarshal(card.Payload, &p))
	assert.Contains(t, game.DefaultDeck, p.Face)
}

func TestWS_ReconnectWithSameTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	token, _, err := ts.tokens.Issue("s-once")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(ts.url(token), nil)
	require.NoError(t, err)
	readUntil(t, conn, ofType(MsgReady))
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ts.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url(token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, ts.hub.Admissible("s-once"))
}

func TestHub_ConsumedSessionExpires(t *testing.T) {
	hub := NewHub(HubDeps{Session: session.DefaultConfig(), SessionTTL: time.Minute})
	now := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	hub.now = func() time.Time { return now }

	hub.mu.Lock()
	require.NoError(t, hub.admitLocked("s-1"))
	assert.ErrorIs(t, hub.admitLocked("s-1"), ErrSessionConsumed)
	hub.mu.Unlock()
	assert.False(t, hub.Admissible("s-1"))

	// после срока жизни токена id забывается
	now = now.Add(time.Minute)
	assert.True(t, hub.Admissible("s-1"))
	hub.mu.Lock()
	require.NoError(t, hub.admitLocked("s-2"))
	_, kept := hub.used["s-1"]
	hub.mu.Unlock()
	assert.False(t, kept, "expired ids are pruned")
}
