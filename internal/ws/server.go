package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

type Server struct {
	hub        *Dispatcher
	upgrader   *websocket.Upgrader
	sendBuffer int
}

func NewServer(hub *Dispatcher, sendBuffer int) *Server {
	return &Server{
		hub:        hub,
		sendBuffer: sendBuffer,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Console clients send no Origin
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("error upgrading to websocket")
		return
	}

	session := NewSession(s.sendBuffer)
	log.Info().Str("session", session.ID).Str("remote", r.RemoteAddr).Msg("client connected")

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go keepAlive(ctx, conn)

	err = NewConnection(s.hub, conn, session).Handle(ctx)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info().Str("session", session.ID).Err(err).Msg("client connection ended")
		return
	}
	log.Info().Str("session", session.ID).Msg("client disconnected")
}

// keepAlive pings the peer so dead connections hit the read deadline.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
