// Package websocket pushes toasts to the browser tabs of one session.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/smartshop/internal/id"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Toast is a transient notification. The browser dismisses it after
// ToastLifetimeMS.
type Toast struct {
	ID    string `json:"id"`
	Level Level  `json:"level"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

const ToastLifetimeMS = 5000

func NewToast(level Level, title, text string) Toast {
	return Toast{ID: id.MustGenerate("toast"), Level: level, Title: title, Text: text}
}

func Success(title string) Toast { return NewToast(LevelSuccess, title, "") }

func Error(title, text string) Toast { return NewToast(LevelError, title, text) }

// Hub tracks the open connections of every session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Client]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[int64]map[*Client]struct{}),
		logger:   logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.sessions[c.sessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.sessions[c.sessionID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.sessions[c.sessionID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.sessions, c.sessionID)
		}
	}
	h.mu.Unlock()
}

// Notify sends t to every open tab of sessionID and reports how many
// received it. Full buffers drop the toast.
func (h *Hub) Notify(sessionID int64, t Toast) int {
	data, err := json.Marshal(t)
	if err != nil {
		h.logger.Error("marshal toast", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.sessions[sessionID] {
		select {
		case c.send <- data:
			sent++
		default:
		}
	}
	return sent
}

// Disconnect closes every connection of sessionID, e.g. on logout.
func (h *Hub) Disconnect(sessionID int64) {
	h.mu.Lock()
	set := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	for c := range set {
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connections across all sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.sessions {
		n += len(set)
	}
	return n
}
