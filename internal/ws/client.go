package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"memory_promo/internal/domain"
	"memory_promo/internal/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
	callTimeout    = 5 * time.Second
)

var (
	errBadMessage  = errors.New("malformed message")
	errUnknownType = errors.New("unknown message type")
)

// Client - websocket соединение одной сессии. Он же поверхность отображения
// для сессии: вызовы Surface/Audio/Effects/Navigator превращаются в сообщения.
type Client struct {
	ID      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	hub     *Hub
	session *session.Session
	log     *slog.Logger
}

func newClient(id string, conn *websocket.Conn, hub *Hub, log *slog.Logger) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		hub:  hub,
		log:  log,
	}
}

// Run обслуживает соединение до его закрытия; сессия живет столько же
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump()
	c.enqueue(Message{Type: MsgReady, Payload: map[string]string{"session_id": c.ID}})
	go c.session.Run(ctx)

	c.readPump(ctx)

	c.session.Close()
	c.close()
	c.hub.Unregister(c)
}

// read
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}
		if err := c.handle(ctx, raw); err != nil {
			if errors.Is(err, session.ErrSessionClosed) {
				return
			}
			c.log.Debug("message rejected", "error", err)
			c.enqueue(errorMessage(err))
		}
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("websocket write error", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// handle разбирает сообщение клиента и передает его сессии
func (c *Client) handle(ctx context.Context, raw []byte) error {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	switch in.Type {
	case InFlip:
		if in.Card == nil {
			return fmt.Errorf("%w: card is required", errBadMessage)
		}
		ok, err := c.session.Flip(ctx, *in.Card)
		if err != nil {
			return err
		}
		if c.hub.metrics != nil {
			c.hub.metrics.ObserveFlip(ok)
		}
		return nil
	case InClaim:
		return c.session.ClaimPrize(ctx)
	case InSubmit:
		return c.session.Submit(ctx, domain.ClaimForm{Name: in.Name, Phone: in.Phone, Email: in.Email})
	case InPlayAgain:
		return c.session.PlayAgain(ctx)
	case InChooseProduct:
		return c.session.ChooseProduct(ctx)
	case InPhoneInput:
		return c.session.PhoneInput(ctx, in.Value)
	case InPhonePaste:
		return c.session.PhonePaste(ctx, in.Value)
	case InSync:
		st, err := c.session.State(ctx)
		if err != nil {
			return err
		}
		c.enqueue(Message{Type: MsgState, Payload: st})
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownType, in.Type)
	}
}

// enqueue не блокирует: медленный клиент отключается
func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal error", "type", msg.Type, "error", err)
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn("send buffer full, closing slow client", "type", msg.Type)
		c.close()
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		// разблокирует readPump
		_ = c.conn.SetReadDeadline(time.Now())
	})
}

// Surface

func (c *Client) SetCardState(index int, state domain.CardState, face string) {
	c.enqueue(Message{Type: MsgCard, Payload: cardPayload{Index: index, State: state, Face: face}})
}

func (c *Client) SetCardOrder(index, order int) {
	c.enqueue(Message{Type: MsgCardOrder, Payload: cardPayload{Index: index, Order: &order}})
}

func (c *Client) SetTimerText(text string) {
	c.enqueue(Message{Type: MsgTimer, Payload: textPayload{Text: text}})
}

func (c *Client) SetMovesText(text string) {
	c.enqueue(Message{Type: MsgMoves, Payload: textPayload{Text: text}})
}

func (c *Client) ShowPanel(p session.Panel) {
	c.enqueue(Message{Type: MsgPanel, Payload: visibilityPayload{Panel: p, Visible: true}})
}

func (c *Client) HidePanel(p session.Panel) {
	c.enqueue(Message{Type: MsgPanel, Payload: visibilityPayload{Panel: p}})
}

func (c *Client) ShowAction(a session.Action) {
	c.enqueue(Message{Type: MsgAction, Payload: visibilityPayload{Action: a, Visible: true}})
}

func (c *Client) HideAction(a session.Action) {
	c.enqueue(Message{Type: MsgAction, Payload: visibilityPayload{Action: a}})
}

func (c *Client) SetResultMessage(text string) {
	c.enqueue(Message{Type: MsgResult, Payload: textPayload{Text: text}})
}

func (c *Client) SetFieldError(f domain.Field, message string) {
	c.enqueue(Message{Type: MsgFieldError, Payload: fieldErrorPayload{Field: f, Message: message}})
}

func (c *Client) SetPhoneInput(value string) {
	c.enqueue(Message{Type: MsgPhone, Payload: map[string]string{"value": value}})
}

// Audio, Effects, Navigator

func (c *Client) Play(cue domain.Cue) {
	c.enqueue(Message{Type: MsgAudio, Payload: map[string]domain.Cue{"cue": cue}})
}

func (c *Client) Confetti(b domain.Burst) {
	c.enqueue(Message{Type: MsgConfetti, Payload: b})
}

func (c *Client) Redirect(path string) {
	c.enqueue(Message{Type: MsgRedirect, Payload: map[string]string{"path": path}})
}
