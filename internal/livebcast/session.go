package livebcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ecotracker/fillstate/internal/types"
	"github.com/gorilla/websocket"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// controlMessage is what an observer sends over the socket: joining or
// leaving a tenant's room.
type controlMessage struct {
	Action   string `json:"action"`
	TenantID string `json:"tenant_id"`
}

// Session is one live observer connection. An observer belongs to at
// most one tenant at a time; joining a second tenant implicitly leaves
// the first.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		id:   types.NewUniqueID().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (s *Session) readLoop() {
	defer func() {
		s.hub.remove(s)
		s.close()
	}()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Observer session read error",
					zap.String("sessionID", s.id), zap.Error(err))
			}
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn("Ignoring malformed control message",
				zap.String("sessionID", s.id), zap.Error(err))
			continue
		}
		switch msg.Action {
		case "join":
			if msg.TenantID == "" {
				continue
			}
			// One tenant at a time.
			s.hub.registry.LeaveAll(s.id)
			s.hub.registry.Join(msg.TenantID, s.id)
		case "leave":
			s.hub.registry.Leave(msg.TenantID, s.id)
		default:
			log.Warn("Unknown control action",
				zap.String("sessionID", s.id), zap.String("action", msg.Action))
		}
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()
	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues a payload without blocking. A session whose buffer is
// full is too slow to keep and gets closed.
func (s *Session) deliver(payload []byte) {
	select {
	case s.send <- payload:
	default:
		log.Warn("Dropping slow observer session", zap.String("sessionID", s.id))
		s.hub.remove(s)
		s.close()
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}
