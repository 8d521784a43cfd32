package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"memory_promo/internal/game"
	"memory_promo/internal/logger"
	"memory_promo/internal/metrics"
	"memory_promo/internal/service"
	"memory_promo/internal/session"

	"github.com/gorilla/websocket"
)

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrSessionConsumed  = errors.New("session already used")
	ErrHubClosed        = errors.New("hub is shutting down")
)

const defaultSessionTTL = 2 * time.Hour

// HubDeps - общие зависимости всех сессий
type HubDeps struct {
	Session   session.Config
	Store     session.Store
	Scheduler game.Scheduler
	Recorder  *service.EventRecorder // может быть nil
	Metrics   *metrics.Metrics       // может быть nil
	// сколько помнить использованный id сессии; не меньше срока жизни токена
	SessionTTL time.Duration
}

// Hub - реестр живых сессий. Одна сессия - одно соединение,
// повторное подключение с тем же id отклоняется до истечения токена.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	used    map[string]time.Time // id сессии -> когда его можно забыть
	closed  bool
	now     func() time.Time

	deps    HubDeps
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(deps HubDeps) *Hub {
	if deps.Scheduler == nil {
		deps.Scheduler = game.NewClockScheduler(nil)
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = defaultSessionTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[string]*Client),
		used:    make(map[string]time.Time),
		now:     time.Now,
		deps:    deps,
		metrics: deps.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Attach создает сессию для соединения и запускает её
func (h *Hub) Attach(sessionID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if err := h.admitLocked(sessionID); err != nil {
		return nil, err
	}

	log := logger.WithSession(sessionID)
	c := newClient(sessionID, conn, h, log)

	var hooks session.Hooks
	if h.deps.Recorder != nil {
		hooks = h.deps.Recorder.Hooks(sessionID)
	}
	c.session = session.New(sessionID, h.deps.Session, session.Deps{
		Surface:   c,
		Audio:     c,
		Effects:   c,
		Navigator: c,
		Store:     h.deps.Store,
		Scheduler: h.deps.Scheduler,
		Hooks:     hooks,
		Log:       log,
	})

	h.clients[sessionID] = c
	if h.metrics != nil {
		h.metrics.SessionsStarted.Inc()
		h.metrics.ActiveSessions.Inc()
	}
	log.Info("session attached", "active", len(h.clients))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.Run(h.ctx)
	}()
	return c, nil
}

// Unregister убирает клиента из реестра после закрытия соединения
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		return
	}
	delete(h.clients, c.ID)
	if h.metrics != nil {
		h.metrics.ActiveSessions.Dec()
	}
	c.log.Info("session detached", "active", len(h.clients))
}

// admitLocked помечает id сессии использованным; вызывается под h.mu
func (h *Hub) admitLocked(sessionID string) error {
	if _, exists := h.clients[sessionID]; exists {
		return ErrAlreadyConnected
	}
	now := h.now()
	if until, ok := h.used[sessionID]; ok && now.Before(until) {
		return ErrSessionConsumed
	}
	for id, until := range h.used {
		if !now.Before(until) {
			delete(h.used, id)
		}
	}
	h.used[sessionID] = now.Add(h.deps.SessionTTL)
	return nil
}

// Admissible - можно ли подключиться с этим id сессии
func (h *Hub) Admissible(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[sessionID]; ok {
		return false
	}
	until, ok := h.used[sessionID]
	return !ok || !h.now().Before(until)
}

func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}

// Count - число активных сессий
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown закрывает все сессии и ждет их завершения или отмены ctx
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.cancel()
	for _, c := range clients {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all sessions closed", "count", len(clients))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
