package http

import (
	"context"
	"net"
	"net/http"
	"sync"

	"parley/internal/api"
	"parley/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ChatServer exposes the websocket chat endpoint.
type ChatServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

// NewChatServer builds the chat listener. Connections inherit ctx, so
// cancelling it closes live websockets that Shutdown would not touch.
func NewChatServer(ctx context.Context, hub *ws.Dispatcher, sendBuffer int, addr string) *ChatServer {
	server := ws.NewServer(hub, sendBuffer)

	r := chi.NewRouter()
	r.Get("/", server.HandleConnections)
	r.Get("/healthz", api.HealthHandler)

	if addr == "" {
		addr = ":6969"
	}

	return &ChatServer{
		server: &http.Server{
			Addr:        addr,
			Handler:     r,
			BaseContext: func(net.Listener) context.Context { return ctx },
		},
	}
}

func (s *ChatServer) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("chat server started")
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *ChatServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for in-process tests.
func (s *ChatServer) Handler() http.Handler {
	return s.server.Handler
}
