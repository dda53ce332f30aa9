package http

import (
	"context"
	"net/http"
	"sync"

	"parley/internal/api"
	"parley/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type AdminServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAdminServer(directory api.UserDirectory, registry *ws.Registry, addr string) *AdminServer {
	adminHandler := api.NewAdminHandler(directory, registry)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/admin/users", adminHandler.AddUserHandler)
	r.Get("/admin/users", adminHandler.ListUsersHandler)
	r.Get("/admin/sessions", adminHandler.SessionsHandler)
	r.Get("/healthz", api.HealthHandler)

	if addr == "" {
		addr = "localhost:6970"
	}

	return &AdminServer{
		server: &http.Server{
			Addr:    addr,
			Handler: r,
		},
	}
}

func (s *AdminServer) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("admin API started")
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for in-process tests.
func (s *AdminServer) Handler() http.Handler {
	return s.server.Handler
}
