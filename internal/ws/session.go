package ws

import (
	"sync"

	"parley/internal/protocol"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultSendBuffer = 64

// Session is the per-connection context: the outbound queue of one websocket
// and the username it is authenticated as, if any.
type Session struct {
	ID string

	out       chan protocol.IncomingMessage
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	username string
}

func NewSession(buffer int) *Session {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Session{
		ID:   uuid.NewString(),
		out:  make(chan protocol.IncomingMessage, buffer),
		done: make(chan struct{}),
	}
}

// Username returns the name bound to the session, or "" before login.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) setUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
}

// Send queues a frame for the connection without blocking. Frames sent after
// the session closed, or while its queue is full, are dropped.
func (s *Session) Send(msg protocol.IncomingMessage) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.out <- msg:
		return true
	case <-s.done:
		return false
	default:
		log.Warn().
			Str("session", s.ID).
			Str("type", msg.Type.String()).
			Msg("outbound queue full, dropping frame")
		return false
	}
}

func (s *Session) Outbound() <-chan protocol.IncomingMessage {
	return s.out
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
