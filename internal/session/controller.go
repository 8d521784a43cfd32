package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"memory_promo/internal/domain"
	"memory_promo/internal/game"
	"memory_promo/internal/validate"
)

var (
	ErrNotWon             = errors.New("game is not won")
	ErrNotLost            = errors.New("game is not lost")
	ErrNotSubmitted       = errors.New("prize is not submitted")
	ErrFormNotOpen        = errors.New("claim form is not open")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrTransitionPending  = errors.New("transition already pending")
)

// ValidationError содержит сообщения по каждому невалидному полю формы
type ValidationError struct {
	Fields map[domain.Field]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// Config - параметры сессии, не относящиеся к правилам стола
type Config struct {
	Rules           game.Rules
	Collection      string
	StorePath       string
	TransitionDelay time.Duration
	SubmitTimeout   time.Duration
	Location        *time.Location
}

const (
	DefaultCollection      = "pascoaparatodos"
	DefaultStorePath       = "/loja/"
	DefaultTransitionDelay = 500 * time.Millisecond
	DefaultSubmitTimeout   = 10 * time.Second
)

func DefaultConfig() Config {
	return Config{
		Rules:           game.DefaultRules(),
		Collection:      DefaultCollection,
		StorePath:       DefaultStorePath,
		TransitionDelay: DefaultTransitionDelay,
		SubmitTimeout:   DefaultSubmitTimeout,
		Location:        SaoPaulo(),
	}
}

// Deps - коллабораторы контроллера
type Deps struct {
	Surface   Surface
	Audio     game.Audio
	Effects   Effects
	Navigator Navigator
	Store     Store
	Scheduler game.Scheduler
	Dispatch  game.Dispatch
	Rand      *rand.Rand
	Now       func() time.Time
	Hooks     Hooks
	Log       *slog.Logger
}

// Controller ведет партию от первого клика до заявки на приз или новой попытки.
// Как и Board, не потокобезопасен и живет в горутине владельца.
type Controller struct {
	cfg   Config
	board *game.Board

	surface  Surface
	audio    game.Audio
	effects  Effects
	nav      Navigator
	store    Store
	sched    game.Scheduler
	dispatch game.Dispatch
	now      func() time.Time
	hooks    Hooks
	log      *slog.Logger

	// фаза после завершения партии; пусто, пока партия идет
	phase domain.Phase

	submitting   bool
	draft        *domain.WinnerSubmission
	resetPending bool

	gen              uint64
	cancelTransition func()

	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(cfg Config, deps Deps) *Controller {
	if cfg.Location == nil {
		cfg.Location = SaoPaulo()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Dispatch == nil {
		deps.Dispatch = game.Immediate
	}

	c := &Controller{
		cfg:      cfg,
		surface:  deps.Surface,
		audio:    deps.Audio,
		effects:  deps.Effects,
		nav:      deps.Navigator,
		store:    deps.Store,
		sched:    deps.Scheduler,
		dispatch: deps.Dispatch,
		now:      deps.Now,
		hooks:    deps.Hooks,
		log:      deps.Log,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.board = game.NewBoard(cfg.Rules, deps.Surface, deps.Audio, deps.Scheduler, deps.Dispatch, deps.Rand)
	c.board.OnOutcome(c.onOutcome)
	return c
}

// Start готовит первую партию: свежий стол, скрытые панели
func (c *Controller) Start() {
	c.surface.HidePanel(PanelResult)
	c.surface.HidePanel(PanelForm)
	c.surface.HideAction(ActionClaim)
	c.surface.HideAction(ActionChooseProduct)
	c.surface.HideAction(ActionPlayAgain)
	c.surface.SetResultMessage("")
	c.board.Reset()
	if c.hooks.OnStart != nil {
		c.hooks.OnStart()
	}
}

// Activate передает клик по карте движку
func (c *Controller) Activate(index int) bool {
	if c.phase != "" {
		return false
	}
	return c.board.Activate(index)
}

func (c *Controller) onOutcome(o domain.Outcome) {
	c.phase = c.board.Phase()
	c.surface.SetResultMessage(o.Message)
	c.surface.ShowPanel(PanelResult)
	c.surface.HideAction(ActionChooseProduct)

	if o.Won {
		c.audio.Play(domain.CueWin)
		c.surface.HideAction(ActionPlayAgain)
		c.surface.ShowAction(ActionClaim)
	} else {
		c.audio.Play(domain.CueLose)
		c.surface.HideAction(ActionClaim)
		c.surface.ShowAction(ActionPlayAgain)
	}

	c.log.Info("game finished",
		"won", o.Won,
		"reason", o.Reason,
		"moves", o.Moves,
		"time_left", o.TimeLeft,
	)
	if c.hooks.OnOutcome != nil {
		c.hooks.OnOutcome(o)
	}
}

// ClaimPrize прячет результат, запускает конфетти и через паузу открывает форму
func (c *Controller) ClaimPrize() error {
	if c.phase != domain.PhaseWon {
		return ErrNotWon
	}
	c.phase = domain.PhaseClaimPending
	c.surface.HidePanel(PanelResult)
	c.effects.Confetti(domain.PrizeBurst)

	gen := c.gen
	c.after(func() { c.openForm(gen) })

	if c.hooks.OnClaim != nil {
		c.hooks.OnClaim()
	}
	return nil
}

func (c *Controller) openForm(gen uint64) {
	if gen != c.gen || c.phase != domain.PhaseClaimPending {
		return
	}
	c.phase = domain.PhaseFormOpen
	c.surface.ShowPanel(PanelForm)
}

// Submit проверяет форму и запускает сохранение в фоне.
// Результат сохранения возвращается в горутину владельца через dispatch.
func (c *Controller) Submit(form domain.ClaimForm) error {
	if c.phase != domain.PhaseFormOpen {
		return ErrFormNotOpen
	}
	if c.submitting {
		return ErrSubmissionInFlight
	}

	name := strings.TrimSpace(form.Name)
	email := strings.TrimSpace(form.Email)
	phone := form.Phone

	fields := []domain.Field{domain.FieldName, domain.FieldPhone, domain.FieldEmail}
	for _, f := range fields {
		c.surface.SetFieldError(f, "")
	}

	verr := &ValidationError{Fields: map[domain.Field]string{}}
	if !validate.IsValidName(name) {
		verr.Fields[domain.FieldName] = MsgNameInvalid
	}
	if !validate.IsValidMobilePhone(phone) {
		verr.Fields[domain.FieldPhone] = MsgPhoneInvalid
	}
	if !validate.IsValidEmail(email) {
		verr.Fields[domain.FieldEmail] = MsgEmailInvalid
	}
	if len(verr.Fields) > 0 {
		for _, f := range fields {
			if msg, ok := verr.Fields[f]; ok {
				c.surface.SetFieldError(f, msg)
			}
		}
		return verr
	}

	now := c.now()
	rec := domain.WinnerSubmission{
		Name:      name,
		Phone:     phone,
		Email:     email,
		PrizeCode: PrizeCode(now.In(c.cfg.Location)),
		Timestamp: FormatTimestamp(now, c.cfg.Location),
	}
	c.submitting = true
	c.draft = &rec

	gen := c.gen
	ctx, collection, store := c.ctx, c.cfg.Collection, c.store
	timeout := c.cfg.SubmitTimeout
	go func() {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		err := store.Add(ctx, collection, rec)
		c.dispatch(func() { c.onStored(gen, rec, err) })
	}()
	return nil
}

func (c *Controller) onStored(gen uint64, rec domain.WinnerSubmission, err error) {
	if gen != c.gen {
		return
	}
	c.submitting = false

	if err != nil {
		// введенные данные остаются в форме, можно отправить снова
		c.surface.SetFieldError(domain.FieldEmail, MsgStoreFailed)
		c.log.Error("failed to store winner", "prize_code", rec.PrizeCode, "error", err)
		if c.hooks.OnStoreFailed != nil {
			c.hooks.OnStoreFailed(rec, err)
		}
		return
	}

	c.draft = nil
	c.phase = domain.PhaseSubmitted
	c.surface.HidePanel(PanelForm)
	c.log.Info("winner stored", "prize_code", rec.PrizeCode)
	if c.hooks.OnStored != nil {
		c.hooks.OnStored(rec)
	}

	c.after(func() { c.showReceipt(gen, rec) })
}

func (c *Controller) showReceipt(gen uint64, rec domain.WinnerSubmission) {
	if gen != c.gen || c.phase != domain.PhaseSubmitted {
		return
	}
	c.surface.SetResultMessage(SuccessMessage(rec.Name, rec.PrizeCode))
	c.surface.HideAction(ActionClaim)
	c.surface.HideAction(ActionPlayAgain)
	c.surface.ShowAction(ActionChooseProduct)
	c.surface.ShowPanel(PanelResult)
}

// PlayAgain после проигрыша прячет результат и через паузу начинает новую партию
func (c *Controller) PlayAgain() error {
	if c.phase != domain.PhaseLost {
		return ErrNotLost
	}
	if c.resetPending {
		return ErrTransitionPending
	}
	c.resetPending = true
	c.surface.HidePanel(PanelResult)

	gen := c.gen
	c.after(func() { c.restart(gen) })
	return nil
}

func (c *Controller) restart(gen uint64) {
	if gen != c.gen {
		return
	}
	c.gen++
	c.resetPending = false
	c.cancelTransition = nil
	c.phase = ""
	c.surface.SetResultMessage("")
	c.surface.HideAction(ActionPlayAgain)
	c.board.Reset()
	if c.hooks.OnStart != nil {
		c.hooks.OnStart()
	}
}

// ChooseProduct уводит победителя в магазин
func (c *Controller) ChooseProduct() error {
	if c.phase != domain.PhaseSubmitted {
		return ErrNotSubmitted
	}
	c.nav.Redirect(c.cfg.StorePath)
	return nil
}

// PhoneInput переформатирует поле телефона при вводе
func (c *Controller) PhoneInput(raw string) {
	c.surface.SetPhoneInput(validate.FormatPhoneDisplay(raw))
}

// PhonePaste форматирует после того, как вставка применилась к полю
func (c *Controller) PhonePaste(raw string) {
	gen := c.gen
	c.dispatch(func() {
		if gen != c.gen {
			return
		}
		c.PhoneInput(raw)
	})
}

// Teardown отменяет таймеры, переходы и незавершенное сохранение
func (c *Controller) Teardown() {
	c.gen++
	if c.cancelTransition != nil {
		c.cancelTransition()
		c.cancelTransition = nil
	}
	c.board.Teardown()
	c.cancel()
}

func (c *Controller) after(fn func()) {
	c.cancelTransition = c.sched.After(c.cfg.TransitionDelay, func() {
		c.dispatch(fn)
	})
}

// Phase - текущая фаза сессии
func (c *Controller) Phase() domain.Phase {
	if c.phase != "" {
		return c.phase
	}
	return c.board.Phase()
}

// State - снимок сессии для клиента
type State struct {
	Phase      domain.Phase             `json:"phase"`
	Board      game.Snapshot            `json:"board"`
	Submitting bool                     `json:"submitting"`
	Draft      *domain.WinnerSubmission `json:"draft,omitempty"`
}

func (c *Controller) State() State {
	s := State{
		Phase:      c.Phase(),
		Board:      c.board.Snapshot(),
		Submitting: c.submitting,
	}
	if c.draft != nil {
		d := *c.draft
		s.Draft = &d
	}
	return s
}

func (c *Controller) Board() *game.Board { return c.board }
