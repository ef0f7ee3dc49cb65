package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// WSSession is one connected client (pro or customer) session.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// WSRegistry holds live websocket sessions keyed by client id and
// implements Sender over them.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(clientID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientID)
}

func (r *WSRegistry) Send(ctx context.Context, recipientID string, msg Message) error {
	r.mu.RLock()
	s, ok := r.sessions[recipientID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.send(msg); err != nil {
		if r.logger != nil {
			r.logger.Warn("ws send failed", "recipient", recipientID, "error", err)
		}
		return err
	}
	return nil
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }
