package livebcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/registry"
	"github.com/gorilla/websocket"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Hub owns every live observer session and delivers tenant-scoped
// update events to them. It implements the dispatcher's Publisher.
type Hub struct {
	registry *registry.Registry
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(reg *registry.Registry) *Hub {
	return &Hub{
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
}

func (h *Hub) Start() error {
	return nil
}

func (h *Hub) Stop() error {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.Unlock()
	for _, session := range sessions {
		session.close()
	}
	return nil
}

// ServeWS upgrades an HTTP request into an observer session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}
	session := newSession(h, conn)

	h.mu.Lock()
	h.sessions[session.id] = session
	h.mu.Unlock()

	log.Info("Observer session connected", zap.String("sessionID", session.id))
	go session.writeLoop()
	go session.readLoop()
}

// Publish delivers an event to every session of a tenant. Delivery is
// fire-and-forget; a slow session is dropped rather than awaited.
func (h *Hub) Publish(ctx context.Context, tenantID string, event model.UpdateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	for _, sessionID := range h.registry.Sessions(tenantID) {
		h.mu.RLock()
		session, ok := h.sessions[sessionID]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		session.deliver(payload)
	}
	return nil
}

// SessionCount reports connected sessions across all tenants.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) remove(session *Session) {
	h.mu.Lock()
	delete(h.sessions, session.id)
	h.mu.Unlock()
	h.registry.LeaveAll(session.id)
	log.Info("Observer session disconnected", zap.String("sessionID", session.id))
}
