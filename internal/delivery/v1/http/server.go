package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/DRSN-tech/shop-recommender/internal/cfg"
)

// Server — HTTP API рекомендаций.
type Server struct {
	srv *http.Server
}

func NewServer(handler http.Handler, c *cfg.HTTPConfig) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + c.Port,
			Handler:           handler,
			ReadHeaderTimeout: c.ReadTimeout,
			ReadTimeout:       c.ReadTimeout,
			WriteTimeout:      c.WriteTimeout,
			IdleTimeout:       c.IdleTimeout,
		},
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run блокируется до остановки; штатная остановка через Stop не считается ошибкой.
func (s *Server) Run() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
