package player

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Packet is the WebSocket message envelope, both directions.
type Packet struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Session is one connected player: the socket, its outbound queue, and the
// authenticated identity. All writes go through the send queue; the write
// pump is the only goroutine touching the connection's write side.
type Session struct {
	AccountID int64
	CharID    int64

	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession wraps an upgraded connection. The caller starts the pumps via
// Run.
func NewSession(accountID, charID int64, conn *websocket.Conn, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		AccountID: accountID,
		CharID:    charID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Send queues a typed message. A full queue drops the message rather than
// blocking the game loop on a slow client.
func (s *Session) Send(msgType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("marshal outbound packet",
			zap.String("type", msgType), zap.Error(err))
		return
	}
	payload, err := json.Marshal(Packet{Type: msgType, Data: raw})
	if err != nil {
		return
	}
	select {
	case s.send <- payload:
	case <-s.done:
	default:
		s.logger.Warn("send queue full, dropping packet",
			zap.Int64("account_id", s.AccountID),
			zap.String("type", msgType))
	}
}

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Run drives both pumps and blocks until the connection drops. handle is
// called for every inbound packet.
func (s *Session) Run(handle func(*Session, *Packet)) {
	go s.writePump()
	s.readPump(handle)
}

func (s *Session) readPump(handle func(*Session, *Packet)) {
	defer s.Close()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed",
					zap.Int64("account_id", s.AccountID), zap.Error(err))
			}
			return
		}
		var pkt Packet
		if err := json.Unmarshal(raw, &pkt); err != nil {
			s.logger.Warn("malformed packet",
				zap.Int64("account_id", s.AccountID), zap.Error(err))
			continue
		}
		handle(s, &pkt)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
