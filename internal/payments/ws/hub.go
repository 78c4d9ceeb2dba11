package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"juristBack/internal/models"
	"juristBack/internal/payments/events"
	"juristBack/internal/payments/fsm"
)

// StatusMessage is pushed to browsers watching a payment.
type StatusMessage struct {
	Type      string     `json:"type"`
	Reference string     `json:"reference"`
	Status    fsm.Status `json:"status"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
	Final     bool       `json:"final"`
}

// Lookup returns the current payment for a reference.
type Lookup func(ctx context.Context, reference string) (*models.Payment, error)

type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

// StatusHub streams status changes of one payment reference to its watchers.
type StatusHub struct {
	upgrader websocket.Upgrader
	lookup   Lookup
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[*client]struct{}
}

// NewStatusHub creates hub. lookup may be nil. Browsers are accepted only from
// allowedOrigins; an empty list accepts any origin.
func NewStatusHub(lookup Lookup, logger *slog.Logger, allowedOrigins []string) *StatusHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHub{
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		lookup:   lookup,
		logger:   logger,
		conns:    make(map[string]map[*client]struct{}),
	}
}

// ServeWS handles GET /payments/ws?reference=...
func (h *StatusHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	if reference == "" {
		http.Error(w, "missing reference", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("payment ws upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	if h.conns[reference] == nil {
		h.conns[reference] = make(map[*client]struct{})
	}
	h.conns[reference][c] = struct{}{}
	h.mu.Unlock()

	if h.lookup != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		p, err := h.lookup(ctx, reference)
		cancel()
		if err == nil && p != nil {
			_ = c.write(messageFor(*p))
		}
	}

	go h.readLoop(reference, c)
}

func (h *StatusHub) readLoop(reference string, c *client) {
	defer func() {
		c.conn.Close()
		h.mu.Lock()
		delete(h.conns[reference], c)
		if len(h.conns[reference]) == 0 {
			delete(h.conns, reference)
		}
		h.mu.Unlock()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish implements events.Publisher.
func (h *StatusHub) Publish(_ context.Context, e events.Event) error {
	if e.Type == events.TypeHookFailed {
		return nil
	}
	msg := StatusMessage{
		Type:      "payment_status",
		Reference: e.Reference,
		Status:    e.Status,
		Code:      e.Code,
		Message:   e.Message,
		Final:     e.Status.IsTerminal(),
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.conns[e.Reference]))
	for c := range h.conns[e.Reference] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.logger.Error("push payment status", "reference", e.Reference, "err", err)
		}
	}
	return nil
}

// Watchers reports how many connections watch reference.
func (h *StatusHub) Watchers(reference string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[reference])
}

func messageFor(p models.Payment) StatusMessage {
	return StatusMessage{
		Type:      "payment_status",
		Reference: p.Reference,
		Status:    p.Status,
		Code:      p.ResponseCode,
		Message:   p.ResponseMessage,
		Final:     p.IsTerminal(),
	}
}

// originChecker accepts requests without an Origin header (non-browser clients)
// and browsers whose origin is listed.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
