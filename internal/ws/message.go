package ws

import (
	"errors"

	"memory_promo/internal/domain"
	"memory_promo/internal/session"
)

// Message - конверт всех сообщений сервера клиенту
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Исходящие типы сообщений
const (
	MsgReady      = "ready"
	MsgCard       = "card"
	MsgCardOrder  = "card_order"
	MsgTimer      = "timer"
	MsgMoves      = "moves"
	MsgPanel      = "panel"
	MsgAction     = "action"
	MsgResult     = "result"
	MsgFieldError = "field_error"
	MsgPhone      = "phone"
	MsgAudio      = "audio"
	MsgConfetti   = "confetti"
	MsgRedirect   = "redirect"
	MsgState      = "state"
	MsgError      = "error"
)

// Входящие типы сообщений
const (
	InFlip          = "flip"
	InClaim         = "claim"
	InSubmit        = "submit"
	InPlayAgain     = "play_again"
	InChooseProduct = "choose_product"
	InPhoneInput    = "phone_input"
	InPhonePaste    = "phone_paste"
	InSync          = "sync"
)

// Inbound - сообщение клиента; используются только поля своего типа
type Inbound struct {
	Type  string `json:"type"`
	Card  *int   `json:"card,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Value string `json:"value,omitempty"`
}

type cardPayload struct {
	Index int              `json:"index"`
	State domain.CardState `json:"state,omitempty"`
	Face  string           `json:"face,omitempty"`
	Order *int             `json:"order,omitempty"`
}

type textPayload struct {
	Text string `json:"text"`
}

type visibilityPayload struct {
	Panel   session.Panel  `json:"panel,omitempty"`
	Action  session.Action `json:"action,omitempty"`
	Visible bool           `json:"visible"`
}

type fieldErrorPayload struct {
	Field   domain.Field `json:"field"`
	Message string       `json:"message"`
}

type errorPayload struct {
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// коды ошибок для клиента
func errorCode(err error) string {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation_failed"
	case errors.Is(err, session.ErrNotWon):
		return "not_won"
	case errors.Is(err, session.ErrNotLost):
		return "not_lost"
	case errors.Is(err, session.ErrNotSubmitted):
		return "not_submitted"
	case errors.Is(err, session.ErrFormNotOpen):
		return "form_not_open"
	case errors.Is(err, session.ErrSubmissionInFlight):
		return "submission_in_flight"
	case errors.Is(err, session.ErrTransitionPending):
		return "transition_pending"
	case errors.Is(err, session.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, errBadMessage):
		return "bad_message"
	case errors.Is(err, errUnknownType):
		return "unknown_type"
	default:
		return "internal"
	}
}

func errorMessage(err error) Message {
	p := errorPayload{Code: errorCode(err)}
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		p.Fields = make(map[string]string, len(verr.Fields))
		for f, msg := range verr.Fields {
			p.Fields[string(f)] = msg
		}
	}
	return Message{Type: MsgError, Payload: p}
}
